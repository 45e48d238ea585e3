package logsvc

import (
	"log"
	"net/http"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger that prints to std and reports to rollbar.
// Reporting is disabled in debug mode and when no token is configured.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	l := &RollbarLogger{std: std}
	l.Enable(!conf.Debug && conf.RollbarToken != "")
	return l
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for queued rollbar items to be sent.
func (l RollbarLogger) Close() {
	rollbar.Wait()
}

// entry is one log call sorted out: what rollbar receives, and what is printed.
type entry struct {
	items  []interface{}
	lines  []interface{}
	extras map[string]interface{}
}

// expected args: error, map[string]interface{}, user.User, api.Request, *http.Request.
// Requests only contribute their method and path; payloads may carry credentials.
func (l RollbarLogger) prepare(msg string, args []interface{}) entry {
	var usrSet bool
	e := entry{items: []interface{}{msg}, extras: make(map[string]interface{})}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if !usrSet { // only set one User
				rollbar.SetPerson(strconv.Itoa(a.ID), a.Username, a.Email)
				e.lines = append(e.lines, "user: "+strconv.Itoa(a.ID)+" "+a.Username)
				usrSet = true
			}
		case api.Request:
			e.extras["request"] = a.Method + " " + a.Path
			e.lines = append(e.lines, "request: "+a.Method+" "+a.Path)
		case *http.Request:
			e.items = append(e.items, a)
			e.lines = append(e.lines, "request: "+a.Method+" "+a.URL.RequestURI())
		case map[string]interface{}:
			for k, v := range a {
				e.extras[k] = v
			}
			e.lines = append(e.lines, a)
		default:
			e.items = append(e.items, a)
			e.lines = append(e.lines, a)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	if len(e.extras) > 0 {
		e.items = append(e.items, e.extras)
	}
	return e
}

func (l RollbarLogger) print(msg string, e entry) {
	l.std.Println(msg)
	for _, line := range e.lines {
		l.std.Printf("%+v\n", line)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	e := l.prepare(msg, args)
	rollbar.Debug(e.items...)
	l.print(msg, e)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	e := l.prepare(msg, args)
	rollbar.Info(e.items...)
	l.print(msg, e)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	e := l.prepare(msg, args)
	rollbar.Warning(e.items...)
	l.print(msg, e)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	e := l.prepare(msg, args)
	rollbar.Error(e.items...)
	l.print(msg, e)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := l.prepare(msg, args)
	rollbar.Critical(e.items...)
	l.print(msg, e)
	rollbar.Wait()
	l.std.Fatal(msg)
}

// Package local serves api requests against the embedded store, so the application runs without a
// backend. Responses match the ones of the remote backend.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/question"
	"github.com/trezcool/examiner/core/session"
	"github.com/trezcool/examiner/core/user"
	"github.com/trezcool/examiner/storage/database"
)

type (
	Options struct {
		Store      database.Store
		Logger     core.Logger
		Mailer     core.EmailService // invitations are not emailed when nil
		Validate   *validator.Validate
		Translator ut.Translator
		Tokens     session.TokenIssuer
		Shuffle    func(n int, swap func(i, j int)) // defaults to math/rand.Shuffle
	}

	// Router executes api requests locally.
	Router struct {
		opts   Options
		routes []route
	}

	cleaner interface {
		Clean()
	}

	variant interface {
		Variant() interface{}
	}
)

var _ api.Requester = (*Router)(nil) // interface compliance check

func New(opts Options) *Router {
	if opts.Translator == nil {
		opts.Translator = core.NewTranslator()
	}
	if opts.Validate == nil {
		opts.Validate = NewValidate(opts.Translator)
	}
	if opts.Tokens.TTL <= 0 {
		opts.Tokens.TTL = 24 * time.Hour
	}
	if opts.Shuffle == nil {
		var mu sync.Mutex
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		opts.Shuffle = func(n int, swap func(i, j int)) {
			mu.Lock()
			defer mu.Unlock()
			rnd.Shuffle(n, swap)
		}
	}
	r := &Router{opts: opts}
	r.routes = r.routeTable()
	return r
}

// NewValidate returns a validator knowing every payload's custom rules and messages.
func NewValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	question.InitValidators(validate, translator)
	return validate
}

// Do executes req on behalf of the user of sess. It never returns an error: failures are
// responses with an error body.
func (r *Router) Do(ctx context.Context, sess session.Resolver, req api.Request) (resp api.Response) {
	if sess == nil {
		sess = session.NewMemory()
	}
	c := &call{sess: sess}

	defer func() {
		if rec := recover(); rec != nil {
			resp = r.errorResponse(errors.Errorf("panic serving %s %s: %v", req.Method, req.Path, rec), c.user, req)
		}
	}()

	usr, err := sess.CurrentUser(ctx)
	if err != nil {
		return r.errorResponse(errors.Wrap(err, "resolving current user"), nil, req)
	}
	c.user = usr

	rt, err := r.match(c, req)
	if err != nil {
		return r.errorResponse(err, c.user, req)
	}
	if err = r.authorize(rt, c); err != nil {
		return r.errorResponse(err, c.user, req)
	}
	if rt.payload != nil {
		if c.payload, err = r.bind(ctx, rt.payload(), req.Payload); err != nil {
			return r.errorResponse(err, c.user, req)
		}
	}

	resp, err = rt.handle(ctx, c)
	if err != nil {
		return r.errorResponse(err, c.user, req)
	}
	return resp
}

func (r *Router) match(c *call, req api.Request) (route, error) {
	method := strings.ToUpper(req.Method)
	parts, query, err := splitPath(req.Path)
	if err == nil {
		for _, rt := range r.routes {
			if rt.method != method {
				continue
			}
			if params, ids, ok := rt.match(parts); ok {
				c.params, c.ids, c.query = params, ids, query
				return rt, nil
			}
		}
	}
	return route{}, notFound(fmt.Sprintf("Route not found: %s %s", method, req.Path))
}

func (r *Router) authorize(rt route, c *call) error {
	if rt.access == public {
		return nil
	}
	if c.user == nil {
		return errNotAuthenticated
	}
	if rt.access == adminOnly && !c.user.IsAdmin {
		return forbidden(rt.denied)
	}
	return nil
}

// bind decodes the raw payload into dest, normalizes and validates it.
func (r *Router) bind(ctx context.Context, dest interface{}, payload interface{}) (interface{}, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		raw = []byte("{}")
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	case string:
		raw = []byte(p)
	default:
		var err error
		if raw, err = json.Marshal(p); err != nil {
			return nil, errInvalidPayload
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, errInvalidPayload
	}

	if cl, ok := dest.(cleaner); ok {
		cl.Clean()
	}
	target := dest
	if v, ok := dest.(variant); ok {
		target = v.Variant()
	}
	if err := r.opts.Validate.StructCtx(ctx, target); err != nil {
		return nil, err
	}
	return dest, nil
}

type message struct {
	Message string `json:"message"`
}

// shuffled returns a copy of items in a random order.
func (r *Router) shuffled(items []question.Public) []question.Public {
	out := append([]question.Public(nil), items...)
	r.opts.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

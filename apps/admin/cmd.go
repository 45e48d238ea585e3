package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/examiner/apps/api/local"
	"github.com/trezcool/examiner/apps/api/remote"
	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/api"
	"github.com/trezcool/examiner/core/session"
	emailsvc "github.com/trezcool/examiner/services/email"
	boltdb "github.com/trezcool/examiner/storage/database/bolt"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer
	db     *boltdb.DB    // opened on first use
	api    api.Requester // built on first use, from conf.API
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate up|version - upgrade the database schema or print its version")
	fmt.Fprintln(cli.out, "  login -email EMAIL - open a session")
	fmt.Fprintln(cli.out, "  logout - close the session")
	fmt.Fprintln(cli.out, "  call [-method METHOD] -path PATH [-data JSON] - send a request with the session")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant administrator rights.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginEmail := loginCmd.String("email", "", "The user's email. The password will be prompted next.")

	callCmd := flag.NewFlagSet("call", flag.ExitOnError)
	callMethod := callCmd.String("method", "GET", "The request method.")
	callPath := callCmd.String("path", "", "The request path, e.g. /exams?search=go")
	callData := callCmd.String("data", "", "The JSON request payload.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2])

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		return cli.login(*loginEmail, pwd)

	case "logout":
		return cli.logout()

	case "call":
		if err := callCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *callPath == "" {
			callCmd.Usage()
			return errHelp
		}
		return cli.call(*callMethod, *callPath, *callData)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) database() (*boltdb.DB, error) {
	if cli.db == nil {
		db, err := boltdb.OpenConfig(cli.conf)
		if err != nil {
			return nil, err
		}
		cli.db = db
	}
	return cli.db, nil
}

// session is the session persisted in the database file, shared by successive invocations.
func (cli *commandLine) session() (session.Resolver, error) {
	db, err := cli.database()
	if err != nil {
		return nil, err
	}
	return boltdb.NewSessionStore(db), nil
}

func (cli *commandLine) requester() (api.Requester, error) {
	if cli.api != nil {
		return cli.api, nil
	}
	if cli.conf.API.IsRemote() {
		cli.api = remote.NewClient(cli.conf, cli.logger)
		return cli.api, nil
	}

	db, err := cli.database()
	if err != nil {
		return nil, err
	}
	var mailer core.EmailService
	if cli.conf.Debug {
		mailer = emailsvc.NewConsoleService(cli.conf)
	} else {
		mailer = emailsvc.NewSendgridService(cli.conf, cli.logger)
	}
	cli.api = local.New(local.Options{
		Store:  db,
		Logger: cli.logger,
		Mailer: mailer,
		Tokens: session.NewTokenIssuer(cli.conf.AppName, cli.conf.SecretKey, cli.conf.Server.JWTExpirationDelta),
	})
	return cli.api, nil
}

func (cli *commandLine) close() error {
	if cli.db == nil {
		return nil
	}
	err := cli.db.Close()
	cli.db = nil
	return err
}

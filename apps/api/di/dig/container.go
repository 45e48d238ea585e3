package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/examiner/apps/api/echo"
	"github.com/trezcool/examiner/apps/api/local"
	"github.com/trezcool/examiner/core"
	"github.com/trezcool/examiner/core/session"
	emailsvc "github.com/trezcool/examiner/services/email"
	logsvc "github.com/trezcool/examiner/services/logger"
	"github.com/trezcool/examiner/storage/database"
	boltdb "github.com/trezcool/examiner/storage/database/bolt"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type routerParams struct {
	dig.In
	Store      database.Store
	Logger     core.Logger
	Mailer     core.EmailService
	Validate   *validator.Validate
	Translator ut.Translator
	Tokens     session.TokenIssuer
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*boltdb.DB, database.Store) {
	db, err := boltdb.OpenConfig(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	loggerParam.Logger.Info(fmt.Sprintf("database %s at schema version %d", conf.Database.Path, db.Version()))
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTokenIssuer(conf *core.Config) session.TokenIssuer {
	return session.NewTokenIssuer(conf.AppName, conf.SecretKey, conf.Server.JWTExpirationDelta)
}

func newRouter(p routerParams) *local.Router {
	return local.New(local.Options{
		Store:      p.Store,
		Logger:     p.Logger,
		Mailer:     p.Mailer,
		Validate:   p.Validate,
		Translator: p.Translator,
		Tokens:     p.Tokens,
	})
}

func newServer(conf *core.Config, logger core.Logger, store database.Store, router *local.Router, tokens session.TokenIssuer) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address: conf.Server.Address,
		Debug:   conf.Debug,
		Store:   store,
		Router:  router,
		Tokens:  tokens,
		Logger:  logger,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(local.NewValidate))
	must(c.Provide(newTokenIssuer))
	must(c.Provide(newRouter))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

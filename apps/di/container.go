// Package di wires the services shared by the API server and the admin CLI.
package di

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/submission"
	"github.com/trezcool/academia/core/user"
	appfs "github.com/trezcool/academia/fs"
	"github.com/trezcool/academia/services/certrender"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/scheduler"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
	redisstore "github.com/trezcool/academia/storage/redis"
)

// catalogRepository is what the lifecycle services look programs, assignments and materials up with.
type catalogRepository interface {
	catalog.Repository
	enrollment.ProgramChecker
	submission.AssignmentChecker
	progress.MaterialChecker
	certificate.ProgramGetter
}

type Repositories struct {
	Users        user.Repository
	Catalog      catalogRepository
	Enrollments  enrollment.Repository
	Submissions  submission.Repository
	Completion   completion.Repository
	Certificates certificate.Repository
	Progress     progress.Repository
}

type Container struct {
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	Validate   *validator.Validate
	Translator ut.Translator

	// DB is nil with the memory engine.
	DB    *sqlx.DB
	Repos Repositories

	MailSvc      core.EmailService
	UserSvc      *user.Service
	CatalogSvc   *catalog.Service
	Ledger       *enrollment.Ledger
	Tracker      *submission.Tracker
	Evaluator    *completion.Evaluator
	Certificates *certificate.Store
	ProgressSvc  *progress.Service
	Scheduler    *scheduler.Scheduler

	closers []io.Closer
}

// New builds every service from conf. The database is created and migrated unless the
// memory engine is configured.
func New(conf *core.Config) (*Container, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	c := &Container{Conf: conf}

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	c.Logger = logsvc.NewRollbarLogger(zl.With(zap.String("app", conf.AppName)), conf)
	c.Logger.Enable(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")

	if err = c.setUpStorage(); err != nil {
		c.Close()
		return nil, err
	}
	if err = c.setUpServices(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) setUpStorage() error {
	switch c.Conf.Database.Engine {
	case database.EngineMemory:
		db := inmemdb.Open()
		c.Repos = Repositories{
			Users:        inmemdb.NewUserRepository(db),
			Catalog:      inmemdb.NewCatalogRepository(db),
			Enrollments:  inmemdb.NewEnrollmentRepository(db),
			Submissions:  inmemdb.NewSubmissionRepository(db),
			Completion:   inmemdb.NewCompletionRepository(db),
			Certificates: inmemdb.NewCertificateRepository(db),
			Progress:     inmemdb.NewProgressRepository(db),
		}
		return nil

	case database.EngineSQLite, database.EnginePostgres:
		db, err := setUpDB(c.Conf)
		if err != nil {
			return errors.Wrap(err, "setting up database")
		}
		c.DB = db
		c.closers = append(c.closers, db)
		c.Repos = Repositories{
			Users:        sqlxrepos.NewUserRepository(db),
			Catalog:      sqlxrepos.NewCatalogRepository(db),
			Enrollments:  sqlxrepos.NewEnrollmentRepository(db),
			Submissions:  sqlxrepos.NewSubmissionRepository(db),
			Completion:   sqlxrepos.NewCompletionRepository(db),
			Certificates: sqlxrepos.NewCertificateRepository(db),
			Progress:     sqlxrepos.NewProgressRepository(db),
		}
		return nil

	default:
		return fmt.Errorf("unsupported database engine %q", c.Conf.Database.Engine)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (c *Container) newRetryQueue() (completion.RetryQueue, error) {
	if c.Conf.Redis.Addr == "" {
		return completion.NewMemoryRetryQueue(), nil
	}
	rdb, err := redisstore.Open(c.Conf)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, rdb)
	return redisstore.NewRetryQueue(rdb, c.Conf.Redis.RetryKey), nil
}

func (c *Container) newEmailService() core.EmailService {
	if c.Conf.Debug || c.Conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(c.Conf, c.Logger)
	}
	return emailsvc.NewSendgridService(c.Conf, c.Logger)
}

func (c *Container) setUpServices() error {
	c.Validate = validator.New()
	c.Translator = core.NewTranslator()
	core.InitValidators(c.Validate, c.Translator)
	user.InitValidators(c.Validate, c.Translator)

	core.ParseEmailTemplates(appfs.FS, c.Conf, c.Logger)
	user.LoadCommonPasswords(appfs.FS, c.Logger)

	c.MailSvc = c.newEmailService()

	renderer, err := certrender.NewRenderer(c.Conf, c.Logger)
	if err != nil {
		return errors.Wrap(err, "setting up certificate renderer")
	}
	retry, err := c.newRetryQueue()
	if err != nil {
		return errors.Wrap(err, "setting up retry queue")
	}

	repos := c.Repos
	c.UserSvc = user.NewService(repos.Users)
	c.CatalogSvc = catalog.NewService(repos.Catalog, repos.Users)
	c.ProgressSvc = progress.NewService(repos.Progress, repos.Catalog)
	c.Ledger = enrollment.NewLedger(repos.Enrollments, repos.Catalog)

	c.Certificates = certificate.NewStore(repos.Certificates, renderer, repos.Users, repos.Catalog, c.Logger)
	c.Certificates.OnCertificateIssued(certificate.NewMailNotifier(c.Certificates, c.MailSvc))

	c.Evaluator = completion.NewEvaluator(repos.Completion, c.Certificates, retry, c.Logger)
	c.Tracker = submission.NewTracker(repos.Submissions, repos.Catalog, c.Logger)
	c.Tracker.OnSubmissionAccepted(c.Evaluator)

	if c.Scheduler, err = scheduler.New(c.Conf, c.Evaluator, c.Logger); err != nil {
		return err
	}
	return nil
}

// Ping checks the external backends are reachable.
func (c *Container) Ping(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.PingContext(ctx); err != nil {
			return errors.Wrap(err, "pinging database")
		}
	}
	for _, cl := range c.closers {
		if rdb, ok := cl.(*goredis.Client); ok {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return errors.Wrap(err, "pinging redis")
			}
		}
	}
	return nil
}

// Close releases the backends in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Error("closing backend", err)
		}
	}
	c.closers = nil
	if c.Logger != nil {
		c.Logger.Sync()
	}
}

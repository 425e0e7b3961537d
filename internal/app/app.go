package app

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/goaltrack/internal/config"
	"github.com/templui/goaltrack/internal/db"
	"github.com/templui/goaltrack/internal/events"
	"github.com/templui/goaltrack/internal/middleware"
	"github.com/templui/goaltrack/internal/repository"
	"github.com/templui/goaltrack/internal/service"
	"github.com/templui/goaltrack/internal/storage"
)

type App struct {
	Cfg           *config.Config
	DB            *sqlx.DB
	Publisher     events.Publisher
	Ledger        *service.Ledger
	Journal       *service.Journal
	GoalService   *service.GoalService
	ExportService *service.ExportService
	Reconciler    *service.Reconciler
	WriteLimiter  *middleware.RateLimiter
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	goalRepository := repository.NewGoalRepository(database)
	timeLogRepository := repository.NewTimeLogRepository(database)
	teamRepository := repository.NewTeamRepository(database)

	// Events: publish to the broker when configured, otherwise log
	var publisher events.Publisher = events.NewLogPublisher()
	if cfg.EventsEnabled() {
		publisher, err = events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to initialize event publisher: %v", err)
		}
	}

	// Storage (optional): a nil Storage disables exports
	var exportStorage storage.Storage
	if cfg.ExportsEnabled() {
		s3Storage, err := storage.New(cfg)
		if err != nil {
			publisher.Close()
			database.Close()
			return nil, fmt.Errorf("failed to initialize storage: %v", err)
		}
		exportStorage = s3Storage
	}

	// Services
	ledger := service.NewLedger(database, goalRepository)
	journal := service.NewJournal(database, timeLogRepository, ledger)
	goalService := service.NewGoalService(
		database,
		goalRepository,
		timeLogRepository,
		teamRepository,
		ledger,
		journal,
		publisher,
	)
	exportService := service.NewExportService(goalRepository, timeLogRepository, exportStorage, cfg.S3PresignExpiry)
	reconciler := service.NewReconciler(goalRepository, ledger, cfg.ReconcileConcurrency)

	return &App{
		Cfg:           cfg,
		DB:            database,
		Publisher:     publisher,
		Ledger:        ledger,
		Journal:       journal,
		GoalService:   goalService,
		ExportService: exportService,
		Reconciler:    reconciler,
		WriteLimiter:  middleware.NewRateLimiter(cfg.WriteRateLimit, cfg.WriteRateWindow),
	}, nil
}

func (a *App) Close() error {
	if a.WriteLimiter != nil {
		a.WriteLimiter.Stop()
	}

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	errs = append(errs, db.Close(a.DB))
	return errors.Join(errs...)
}

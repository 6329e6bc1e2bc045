package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaibs3/holovote/internal/catalog"
	"github.com/shaibs3/holovote/internal/config"
	"github.com/shaibs3/holovote/internal/handlers"
	"github.com/shaibs3/holovote/internal/mirror"
	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/router"
	"github.com/shaibs3/holovote/internal/storage"
	"github.com/shaibs3/holovote/internal/swapi"
	"github.com/shaibs3/holovote/internal/telemetry"
	"github.com/shaibs3/holovote/internal/voting"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App represents the main application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	db        *gorm.DB
	scheduler *mirror.Scheduler
	server    *http.Server
}

func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	tel, err := telemetry.NewTelemetry(logger)
	if err != nil {
		return nil, err
	}

	db, err := storage.NewDbProviderFactory(logger, tel.Meter).CreateProvider(cfg.DBConfig)
	if err != nil {
		return nil, err
	}

	client, err := swapi.NewClient(cfg.Swapi(), logger, tel.Meter)
	if err != nil {
		return nil, err
	}
	syncer, err := mirror.NewSynchronizer(db, client, logger, tel.Meter)
	if err != nil {
		return nil, err
	}
	engine, err := voting.NewEngine(db, logger, tel.Meter)
	if err != nil {
		return nil, err
	}

	var scheduler *mirror.Scheduler
	if cfg.SyncSchedule != "" {
		scheduler, err = mirror.NewScheduler(syncer, cfg.SyncSchedule, logger)
		if err != nil {
			return nil, err
		}
	}

	handlerList := []router.Handler{
		handlers.NewEntityHandler[models.Character](catalog.NewTable[models.Character](db, models.KindCharacter), syncer, client),
		handlers.NewEntityHandler[models.Film](catalog.NewTable[models.Film](db, models.KindFilm), syncer, client),
		handlers.NewEntityHandler[models.Starship](catalog.NewTable[models.Starship](db, models.KindStarship), syncer, client),
		handlers.NewVoteHandler(engine),
	}

	appRouter := router.NewRouter(tel, logger, handlerList)
	server := appRouter.CreateServer(":" + cfg.Port)

	return &App{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
		db:        db,
		scheduler: scheduler,
		server:    server,
	}, nil
}

// Handler exposes the routed HTTP handler
func (app *App) Handler() http.Handler {
	return app.server.Handler
}

// start starts the server and the refresh schedule
func (app *App) start() error {
	app.logger.Info("starting server", zap.String("port", app.config.Port))

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	if app.scheduler != nil {
		app.scheduler.Start()
	}
	return nil
}

// stop gracefully shuts down the application
func (app *App) stop() error {
	app.logger.Info("shutting down server...")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	_ = app.telemetry.Shutdown(shutdownCtx)
	if sqlDB, err := app.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			app.logger.Warn("failed to close database", zap.Error(err))
		}
	}

	app.logger.Info("server exited gracefully")
	return nil
}

// Run starts the application and waits for shutdown signals
func (app *App) Run() error {
	if err := app.start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	return app.stop()
}

// Package server wires configuration, storage, services and the HTTP
// transport together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/avatar"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *hs.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	return newApp(ctx, c, logger, prometheus.DefaultRegisterer)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, reg prometheus.Registerer) (*App, error) {
	app := &App{config: c, logger: logger}
	if err := app.init(ctx, reg); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context, reg prometheus.Registerer) error {
	c, logger := app.config, app.logger

	rm, err := app.initStore(ctx)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}

	dispatcher, err := app.initMailer()
	if err != nil {
		return fmt.Errorf("mailer init error: %w", err)
	}

	storage, avatarsDir, err := app.initAvatarStorage(ctx)
	if err != nil {
		return fmt.Errorf("avatar storage init error: %w", err)
	}

	uploadDir, err := filex.EnsureDir(c.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir init error: %w", err)
	}

	tokens := auth.NewTokenService([]byte(c.SecretKey), c.SessionTokenValidityDuration)

	as := services.NewAccountService(app.db, rm, c, tokens, dispatcher, logger)
	gate := services.NewGate(app.db, rm, tokens, logger)
	av := services.NewAvatarService(app.db, rm, c, storage, logger)

	app.server = hs.NewHTTPServer(hs.OptionsFromConfig(c, uploadDir, avatarsDir), logger, as, gate, av, hs.NewMetrics(reg))

	return nil
}

// initStore opens PostgreSQL and applies migrations when a DSN is set;
// otherwise accounts live in memory.
func (app *App) initStore(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory store")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.db = db

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return rm, nil
}

func (app *App) initMailer() (mailer.Dispatcher, error) {
	if app.config.SMTPHost == "" {
		return mailer.NewLogDispatcher(app.logger), nil
	}
	return mailer.NewSMTPDispatcher(app.config)
}

// initAvatarStorage returns the storage and, for the local backend, the
// directory served under /avatars.
func (app *App) initAvatarStorage(ctx context.Context) (avatar.Storage, string, error) {
	switch app.config.AvatarBackend {
	case config.AvatarBackendS3:
		s, err := avatar.NewS3Storage(ctx, app.config)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	case config.AvatarBackendLocal, "":
		s, err := avatar.NewLocalStorage(app.config.PublicDir)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown avatar backend %q", app.config.AvatarBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or the server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close db", "error", err)
	}
	app.db = nil
}

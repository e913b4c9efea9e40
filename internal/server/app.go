// Package server wires configuration, storage and services together and
// runs the HTTP API until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/shlink/internal/logging"
	"github.com/dmitrijs2005/shlink/internal/server/config"
	"github.com/dmitrijs2005/shlink/internal/server/httpapi"
	"github.com/dmitrijs2005/shlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shlink/internal/server/services"
	"github.com/dmitrijs2005/shlink/internal/server/storage"
)

// maxJanitorInterval caps how long expired file tokens linger.
const maxJanitorInterval = 10 * time.Minute

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	manifests   *services.ManifestService
	links       *services.LinkService
}

// NewApp opens the database, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var store storage.ObjectStore
	if c.S3Enabled {
		s3, err := storage.NewS3Store(ctx, storage.Options{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		store = s3
	}

	audit := services.NewAuditLog(db, rm, logger)
	qr := services.NewQRService(store, c.QRCodeSize, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		manifests:   services.NewManifestService(db, rm, store, audit, c, logger),
		links:       services.NewLinkService(db, rm, store, qr, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.manifests, app.links, app.db, app.config.CORSAllowedOrigins, app.logger)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, h.Routes(), app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startJanitor purges expired file tokens until ctx is done.
func (app *App) startJanitor(ctx context.Context) {
	interval := min(app.config.FileTokenTTL, maxJanitorInterval)
	if interval <= 0 {
		interval = maxJanitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := app.repomanager.FileTokens(app.db).DeleteExpired(ctx, now.UTC())
			if err != nil {
				app.logger.Error(ctx, "file token cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired file tokens removed", "count", n)
			}
		}
	}
}

// Run blocks until a signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "base_url", app.config.BaseURL, "s3", app.config.S3Enabled)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startJanitor(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}

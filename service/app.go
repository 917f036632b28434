package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"blogfront/app/config"
	"blogfront/app/repositories"
	"blogfront/app/routes"
	"blogfront/app/services"

	"go.uber.org/zap"
)

// Backend is an open store that can also be seeded and health-checked.
type Backend interface {
	repositories.Store
	repositories.Importer
	Ping(ctx context.Context) error
	Close() error
}

// OpenBackend opens the store selected by the database configuration.
// SQL schemas are migrated when migrate is set.
func OpenBackend(cfg config.DatabaseConfig, debug, migrate bool) (Backend, error) {
	switch cfg.Driver {
	case "badger":
		store, err := repositories.OpenBadgerStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "sqlite":
		store, err := repositories.OpenSQLStore(cfg.Driver, cfg.DSN, debug)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := store.Migrate(); err != nil {
				store.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// App wires the store, the page service and the router into an HTTP server.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   Backend
	handler http.Handler
}

// NewApp opens the configured store and builds the router
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := OpenBackend(cfg.Database, cfg.Debug, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	app, err := newApp(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return app, nil
}

func newApp(cfg *config.Config, store Backend, logger *zap.Logger) (*App, error) {
	pages, err := services.NewPageService(
		repositories.NewQueries(store, logger.Named("query")),
		services.NewSerializer(cfg.MediaURL),
		services.PageLimits(cfg.Pages),
		logger.Named("pages"),
	)
	if err != nil {
		return nil, err
	}
	router, err := routes.Setup(pages, routes.Options{
		ViewsPath: cfg.ViewsPath,
		StaticDir: cfg.StaticDir,
		Logger:    logger.Named("http"),
		Health:    store.Ping,
	})
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, logger: logger, store: store, handler: router}, nil
}

// Handler returns the application's HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases the store
func (a *App) Close() error {
	return a.store.Close()
}

// Run listens on the configured address and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully,
// letting in-flight requests finish within the shutdown timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		ErrorLog:     zap.NewStdLog(a.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("blog server started", zap.String("addr", ln.Addr().String()), zap.String("driver", a.cfg.Database.Driver))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/broady/taskapi/internal/api"
	"github.com/broady/taskapi/internal/api/middleware"
	"github.com/broady/taskapi/internal/config"
	"github.com/broady/taskapi/internal/server"
	"github.com/broady/taskapi/internal/store/memstore"
	"github.com/broady/taskapi/internal/store/sqlstore"
	"github.com/broady/taskapi/internal/task"
)

type ServeCmd struct {
	Addr  string `help:"Listen address. Overrides http.addr."`
	Store string `help:"Storage backend: memory, or sql to use database.driver." enum:"config,memory,sql" default:"config"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	c.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	app := newApp(cfg.HTTP, task.NewService(repo, logger), logger)
	for _, r := range app.Routes() {
		logger.Debug("route registered", slog.String("method", r.Method), slog.String("path", app.BasePath()+r.Pattern))
	}

	srv := server.New(app.Handler(), server.Options{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
		Logger:            logger,
	})
	return srv.ListenAndServe(ctx)
}

// apply lays the flags over cfg, which already holds file and env settings.
// --store=sql on a memory config falls back to the default SQLite database.
func (c *ServeCmd) apply(cfg *config.Config) {
	if c.Addr != "" {
		cfg.HTTP.Addr = c.Addr
	}
	switch c.Store {
	case "memory":
		cfg.Database.Driver = "memory"
	case "sql":
		if cfg.Database.Driver == "memory" {
			def := config.Default().Database
			cfg.Database.Driver = def.Driver
			cfg.Database.DSN = def.DSN
		}
	}
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "memory" {
		return errors.New("database.driver is memory: nothing to migrate")
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	s, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storeOptions(cfg.Database))
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("schema applied", slog.String("driver", s.Driver()))
	return nil
}

// openRepository returns the configured task store and a function that
// releases it.
func openRepository(ctx context.Context, db config.DatabaseSection, logger *slog.Logger) (task.Repository, func() error, error) {
	if db.Driver == "memory" {
		logger.Info("using in-memory store")
		return memstore.New(), func() error { return nil }, nil
	}

	s, err := sqlstore.Open(ctx, db.Driver, db.DSN, storeOptions(db))
	if err != nil {
		return nil, nil, err
	}
	if db.Migrate {
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
	}
	logger.Info("database connected", slog.String("driver", s.Driver()))
	return s, s.Close, nil
}

func storeOptions(db config.DatabaseSection) sqlstore.Options {
	return sqlstore.Options{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}
}

// newApp builds the HTTP surface for svc.
func newApp(cfg config.HTTPSection, svc *task.Service, logger *slog.Logger) *api.App {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSOrigins
	}

	app := api.NewApp().
		WithBasePath(cfg.BasePath).
		WithLogger(logger).
		WithMaxRequestBodySize(cfg.MaxBodyBytes).
		WithErrorTransformer(task.TransformError).
		WithMiddleware(middleware.RequestID).
		WithMiddleware(middleware.CORS(cors)).
		WithUnaryInterceptor(middleware.LoggingInterceptor(logger))
	if cfg.MaskInternalErrors {
		app.WithMaskInternalErrors()
	}

	task.Routes(app, svc)
	return app
}

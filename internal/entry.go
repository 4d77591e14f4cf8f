// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/adrlens/internal/api"
	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/sse"
	"github.com/starford/adrlens/internal/storage"
	"github.com/starford/adrlens/internal/template"
	"github.com/starford/adrlens/internal/validate"
)

// Core is the wired application core shared by the server and the
// one-shot CLI commands.
type Core struct {
	Store   *storage.FS
	DB      *index.DB
	Cache   *reference.Cache
	Engine  *reference.Engine
	Records *recordservice.Service
	Paths   *validate.PathValidator

	logger *slog.Logger
}

// Open builds storage, index, engine and record service from cfg. The
// caller must Close the returned Core.
func Open(cfg *Config, logger *slog.Logger) (*Core, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	cache := reference.NewCache(cfg.Scan.EvictInterval)
	engine := recordservice.NewEngine(store, cfg.Records.Settings(), cache,
		reference.WithLogger(logger),
		reference.WithMaxMatches(cfg.Scan.MaxMatches))

	paths := validate.NewPathValidator(cfg.Records.Roots...)
	picker := template.Picker{
		Name:       cfg.Records.Template,
		CustomPath: cfg.Records.CustomTemplatePath,
		Paths:      paths,
		Logger:     logger,
	}

	return &Core{
		Store:   store,
		DB:      db,
		Cache:   cache,
		Engine:  engine,
		Records: recordservice.NewService(store, db, engine, picker, logger),
		Paths:   paths,
		logger:  logger,
	}, nil
}

// Sync brings the index up to date with the vault.
func (c *Core) Sync() error {
	return index.Sync(c.DB, c.Store, c.Engine, c.logger)
}

// Reload applies the records settings of cfg and re-syncs the index.
// Template and scan tuning changes need a restart.
func (c *Core) Reload(cfg *Config) error {
	c.Engine.Reload(cfg.Records.Settings())
	c.logger.Info("settings reloaded",
		slog.String("prefix", c.Engine.Matcher().Prefix()),
		slog.Bool("enabled", c.Engine.Enabled()),
		slog.String("directory_name", cfg.Records.DirectoryName))
	return c.Sync()
}

// IsRecord reports whether the vault path names a record under the
// current prefix.
func (c *Core) IsRecord(p string) bool {
	return storage.IsRecordName(path.Base(p), c.Engine.Matcher().Prefix())
}

// Close releases the index.
func (c *Core) Close() error {
	return c.DB.Close()
}

// NewLogger returns the JSON logger the server writes to stdout.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("record_prefix", cfg.Records.Prefix),
		slog.Bool("references_enabled", cfg.Records.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	core, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if err := core.Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(sse.DefaultThrottle)
	defer broker.Close()

	apiRouter := api.NewRouter(core.Records, api.RouterConfig{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		SSE:         broker,
		Paths:       core.Paths,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := core.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		core.Cache.Run(gCtx)
		return nil
	})

	// File watcher feeds the index, the scan cache and the SSE broker.
	g.Go(func() error {
		return index.Watch(gCtx, core.DB, core.Store, core.Engine, logger, func(kind, p string) {
			broker.PublishChange(kind, p, core.IsRecord(p))
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Signals: SIGHUP reloads settings, SIGINT/SIGTERM shut down.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(quit)

	wait:
		for {
			select {
			case sig := <-quit:
				if sig == syscall.SIGHUP {
					reloadSettings(app.reload, core, logger)
					continue
				}
				logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
				break wait
			case <-gCtx.Done():
				logger.Info("Context cancelled, initiating shutdown")
				break wait
			}
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher and the cache loop.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func reloadSettings(reload Reloader, core *Core, logger *slog.Logger) {
	if reload == nil {
		logger.Warn("SIGHUP ignored: no config source")
		return
	}
	cfg, err := reload()
	if err != nil {
		logger.Error("reload failed, keeping current settings", slog.String("error", err.Error()))
		return
	}
	if err := core.Reload(cfg); err != nil {
		logger.Warn("sync after reload failed", slog.String("error", err.Error()))
	}
}

// Package app wires configuration into a ready-to-use generation service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/comprende/internal/annotate"
	"github.com/felixgeelhaar/comprende/internal/config"
	"github.com/felixgeelhaar/comprende/internal/jobs"
	"github.com/felixgeelhaar/comprende/internal/queue"
	"github.com/felixgeelhaar/comprende/internal/storage/postgres"
	"github.com/felixgeelhaar/comprende/internal/storage/sqlite"
)

// App holds all application dependencies
type App struct {
	Config  *config.LocalConfig
	Service *jobs.Service

	// Queue is nil unless the queue is enabled
	Queue *queue.Connection

	closers []func() error
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config *config.LocalConfig

	// Dir is the comprende home, used for the default SQLite path
	Dir string

	// Offline keeps everything in memory and runs jobs in-process
	Offline bool

	Logger *slog.Logger
}

// New creates a new application instance with all dependencies wired
func New(ctx context.Context, cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	app := &App{Config: cfg.Config}

	annotator, err := NewAnnotator(cfg.Config.Annotator, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init annotator: %w", err)
	}

	stores, err := app.openStores(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	var dispatcher jobs.Dispatcher
	if cfg.Config.Queue.Enabled && !cfg.Offline {
		conn, err := queue.NewConnection(cfg.Config.Queue.URL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init queue: %w", err)
		}
		app.Queue = conn
		app.closers = append(app.closers, conn.Close)
		dispatcher = queue.NewProducer(conn)
	}

	svc, err := jobs.NewService(jobs.Config{
		Annotator:   annotator,
		Stores:      stores,
		Dispatcher:  dispatcher,
		SampleRatio: cfg.Config.Exercises.SampleRatio,
		Workers:     cfg.Config.Exercises.Workers,
		Logger:      cfg.Logger,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init service: %w", err)
	}
	app.Service = svc

	return app, nil
}

func (a *App) openStores(ctx context.Context, cfg AppConfig) (jobs.Stores, error) {
	if cfg.Offline {
		return jobs.NewMemoryStore().Stores(), nil
	}

	switch cfg.Config.Storage.Driver {
	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.Config.SQLitePath(cfg.Dir))
		if err != nil {
			return jobs.Stores{}, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return jobs.Stores{}, err
		}
		return sqlite.NewStores(db), nil

	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.Config.Storage.DSN)
		if err != nil {
			return jobs.Stores{}, err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		store := postgres.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return jobs.Stores{}, err
		}
		return store.Stores(), nil

	default:
		return jobs.Stores{}, fmt.Errorf("unknown storage driver %q", cfg.Config.Storage.Driver)
	}
}

// NewAnnotator builds the configured annotation backend. Remote backends
// are wrapped with retry, circuit breaking, bulkheading and rate limiting.
func NewAnnotator(cfg config.AnnotatorConfig, logger *slog.Logger) (annotate.Annotator, error) {
	switch cfg.Kind {
	case config.AnnotatorLexicon, "":
		if cfg.LexiconPath != "" {
			return annotate.LoadLexiconFile(cfg.LexiconPath)
		}
		return annotate.NewLexicon(), nil

	case config.AnnotatorHTTP:
		remote := annotate.NewHTTPAnnotator(annotate.HTTPConfig{
			BaseURL: cfg.URL,
			Model:   cfg.Model,
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		rc := annotate.DefaultResilientConfig()
		if cfg.MaxAttempts > 0 {
			rc.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.MaxConcurrent > 0 {
			rc.MaxConcurrent = cfg.MaxConcurrent
		}
		if cfg.RatePerSecond > 0 {
			rc.RatePerSecond = cfg.RatePerSecond
		}
		rc.Logger = logger
		return annotate.NewResilientAnnotator(remote, rc), nil

	default:
		return nil, fmt.Errorf("unknown annotator kind %q", cfg.Kind)
	}
}

// Close stops inline jobs, then releases the queue and storage in reverse
// order of creation
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Package control assembles the pacer application from its parts and
// owns the start/stop lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/pacer/internal/api"
	"github.com/vietddude/pacer/internal/core/config"
	"github.com/vietddude/pacer/internal/dispatch"
	redisclient "github.com/vietddude/pacer/internal/infra/redis"
	"github.com/vietddude/pacer/internal/infra/storage"
	"github.com/vietddude/pacer/internal/infra/storage/memory"
	"github.com/vietddude/pacer/internal/infra/storage/postgres"
	"github.com/vietddude/pacer/internal/pacing"
	"github.com/vietddude/pacer/internal/pagemap"
	"github.com/vietddude/pacer/internal/runner"
)

// Pacer is the main application struct that manages the dispatch
// pipeline lifecycle.
type Pacer struct {
	cfg         *config.AppConfig
	dispatcher  *dispatch.Dispatcher
	replayer    *dispatch.Replayer
	apiServer   *api.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	grpcRunner  *runner.GRPCRunner
	log         *slog.Logger
}

// NewPacer creates a new Pacer instance with all dependencies initialized.
func NewPacer(ctx context.Context, cfg *config.AppConfig) (*Pacer, error) {
	log := slog.Default()

	// 1. Initialize dispatch history storage
	var history storage.DispatchRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		if err := connectWithRetry(ctx, "postgres", func(ctx context.Context) error {
			var err error
			db, err = postgres.NewDB(ctx, cfg.Database)
			return err
		}); err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations. Goose needs the *sql.DB that sqlx wraps.
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		history = postgres.NewDispatchRepo(db)
		log.Info("Using PostgreSQL dispatch history")
	} else {
		history = memory.NewDispatchRepo()
		log.Info("Using in-memory dispatch history")
	}

	// 2. Initialize the replay queue
	var queue storage.FailedDispatchRepository
	var redisClient *redisclient.Client

	if cfg.Redis.URL != "" {
		if err := connectWithRetry(ctx, "redis", func(ctx context.Context) error {
			var err error
			redisClient, err = redisclient.NewClient(cfg.Redis)
			return err
		}); err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		queue = redisclient.NewFailedDispatchRepo(redisClient, cfg.Replay.Namespace)
		log.Info("Using Redis replay queue", "namespace", cfg.Replay.Namespace)
	} else {
		queue = memory.NewFailedDispatchRepo()
		log.Info("Using in-memory replay queue")
	}

	// 3. Load the page map
	pages, err := pagemap.Load(cfg.PageMap)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded page map", "entries", pages.Len(), "base_url", pages.BaseURL())

	// 4. Initialize the runner backend
	var run runner.Runner
	var grpcRunner *runner.GRPCRunner

	switch cfg.Runner.Protocol {
	case "http":
		run = runner.NewHTTPRunner(cfg.Runner.Name, cfg.Runner.Endpoint, cfg.Runner.Timeout)
	case "grpc":
		grpcRunner, err = runner.NewGRPCRunner(ctx, cfg.Runner.Name, cfg.Runner.Endpoint)
		if err != nil {
			return nil, err
		}
		if err := grpcRunner.Healthy(ctx); err != nil {
			log.Warn("grpc runner not healthy yet", "error", err)
		}
		// Generated clients ride on grpcRunner.Conn(); the generic
		// pipeline still posts through HTTP on the same deployment.
		run = runner.NewHTTPRunner(cfg.Runner.Name, cfg.Runner.Endpoint, cfg.Runner.Timeout)
	default:
		return nil, fmt.Errorf("unknown runner protocol %q", cfg.Runner.Protocol)
	}

	// 5. Build the pacing controller and dispatcher
	policy, err := cfg.DefaultPolicy()
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.New(dispatch.Config{
		Controller: pacing.NewController(pacing.Config{Tracker: pacing.NewMemoryTracker()}),
		Policy:     policy,
		Runner:     run,
		Pages:      pages,
		History:    history,
		Queue:      queue,
		Logger:     log,
	})

	replayer := dispatch.NewReplayer(dispatch.ReplayerConfig{
		Queue:      queue,
		Dispatcher: dispatcher,
		Interval:   cfg.Replay.Interval,
		BatchSize:  cfg.Replay.BatchSize,
		Logger:     log,
	})

	// 6. Initialize the HTTP server
	var health func(ctx context.Context) error
	if db != nil {
		health = db.Health
	}

	apiServer := api.NewServer(api.Config{
		Port:       cfg.Server.Port,
		Dispatcher: dispatcher,
		History:    history,
		Health:     health,
		Logger:     log,
	})

	return &Pacer{
		cfg:         cfg,
		dispatcher:  dispatcher,
		replayer:    replayer,
		apiServer:   apiServer,
		db:          db,
		redisClient: redisClient,
		grpcRunner:  grpcRunner,
		log:         log,
	}, nil
}

// connectWithRetry retries backing-store connections during startup so
// the service survives a slow database or Redis coming up alongside it.
func connectWithRetry(ctx context.Context, name string, connect func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := connect(ctx); err != nil {
			slog.Warn("connection failed, retrying", "target", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Dispatcher exposes the dispatcher for CLI subcommands.
func (p *Pacer) Dispatcher() *dispatch.Dispatcher {
	return p.dispatcher
}

// Start starts the pacer and all its components.
func (p *Pacer) Start(ctx context.Context) error {
	go func() {
		if err := p.apiServer.Start(); err != nil {
			p.log.Error("API server failed", "error", err)
		}
	}()

	p.replayer.Start(ctx)

	p.log.Info("Pacer started", "port", p.cfg.Server.Port)
	return nil
}

// Stop stops the pacer.
func (p *Pacer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Pacer...")

	p.replayer.Stop()

	if p.grpcRunner != nil {
		if err := p.grpcRunner.Close(); err != nil {
			p.log.Warn("Failed to close grpc runner", "error", err)
		}
	}

	if p.redisClient != nil {
		if err := p.redisClient.Close(); err != nil {
			p.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.log.Warn("Failed to close database", "error", err)
		}
	}

	return p.apiServer.Stop(ctx)
}

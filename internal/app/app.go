// Package app wires configuration into a ready WorkflowService. The server,
// the seeder and rfpctl all build their dependencies here.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faisal-mohamed/rfdb-new/internal/api"
	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/lock"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/render"
	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/storage"
	"github.com/faisal-mohamed/rfdb-new/internal/telemetry"
)

type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Workflow *services.WorkflowService
	Objects  storage.ObjectStore
	// Checks are run by the health endpoint.
	Checks map[string]api.Pinger

	closers []func()
}

// New connects every backing service named in cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger, Checks: map[string]api.Pinger{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		repo repository.Repository
		tx   repository.TransactionManager
	)
	switch cfg.DB.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		repo, tx = store, store
	default:
		pool, err := OpenPostgres(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if cfg.Server.Migrate {
			applied, err := repository.ApplyMigrations(ctx, pool)
			if err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			if len(applied) > 0 {
				logger.Info("migrations applied", "versions", applied)
			}
		}
		repo, tx = repository.NewPostgresStore(pool), repository.NewPostgresTxManager(pool)
	}
	a.Checks["database"] = repo

	var locker lock.Locker
	switch cfg.Lock.Driver {
	case "redis":
		rl, err := lock.NewRedisLocker(cfg.Lock.RedisURL, cfg.Lock.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rl.Close() })
		a.Checks["redis"] = rl
		locker = rl
	default:
		locker = lock.NewLocalLocker()
	}

	switch cfg.Storage.Driver {
	case "minio":
		ms, err := storage.NewMinioStore(ctx, cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		a.Objects = ms
	default:
		ls, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			return nil, err
		}
		a.Objects = ls
	}

	metrics := telemetry.NewDefaultMetrics()
	renderer, err := render.NewService(render.Format(cfg.Render.Format), a.Objects, cfg.Render.PathPrefix, cfg.Render.ChromeTimeout, metrics)
	if err != nil {
		return nil, err
	}

	var client services.ExtractionClient
	if cfg.Extraction.Mode == "http" {
		hc := services.NewHTTPExtractionClient(cfg.Extraction.URL, cfg.Extraction.Timeout)
		if oc := cfg.Extraction.OAuth; oc.TokenURL != "" {
			hc = hc.WithClientCredentials(context.WithoutCancel(ctx), oc.ClientID, oc.ClientSecret, oc.TokenURL, oc.Scopes)
		}
		client = hc
	} else {
		logger.Warn("using mock extraction client", "delay", cfg.Extraction.MockDelay)
		client = services.NewMockExtractionClient(cfg.Extraction.MockDelay)
	}

	a.Workflow = services.NewWorkflowService(repo, tx, client, renderer, locker, logger,
		services.WithMetrics(metrics),
		services.WithExtractionTimeout(cfg.Extraction.Timeout),
	)
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenPostgres creates a pool for cfg and checks that it answers.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

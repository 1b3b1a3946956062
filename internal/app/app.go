package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/orcid-sync/internal/adapter/orcid"
	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres"
	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/entity"
	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/history"
	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/profile"
	"github.com/heartmarshall/orcid-sync/internal/adapter/postgres/queue"
	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/service/content"
	"github.com/heartmarshall/orcid-sync/internal/service/detector"
	"github.com/heartmarshall/orcid-sync/internal/service/inbound"
	"github.com/heartmarshall/orcid-sync/internal/service/pull"
	"github.com/heartmarshall/orcid-sync/internal/service/push"
	"github.com/heartmarshall/orcid-sync/internal/service/registry"
	"github.com/heartmarshall/orcid-sync/internal/telemetry"
)

// App holds the wired components of one process. Every dependency is
// constructed here and passed down explicitly.
type App struct {
	Config *config.Config
	Log    *slog.Logger

	pool      *pgxpool.Pool
	telemetry *telemetry.Telemetry

	Queue   *queue.Repo
	History *history.Repo
	Content *content.Service
	Push    *push.Service
	Pull    *pull.Service
}

// New connects to the database, sets up telemetry and wires the
// synchronization services. Close releases what New acquired.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, Version)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metrics, err := telemetry.NewSyncMetrics(tel.MeterProvider())
	if err != nil {
		pool.Close()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("create sync metrics: %w", err)
	}

	// Repositories.
	txm := postgres.NewTxManager(pool)
	queueRepo := queue.New(pool)
	historyRepo := history.New(pool)
	entityRepo := entity.New(pool)
	profileRepo := profile.New(pool)

	// Registry client and change detection.
	client := orcid.New(cfg.Registry, metrics, log)
	changes := detector.NewDetector(log, queueRepo, historyRepo, profileRepo)
	transport := registry.NewTransport(log, profileRepo, entityRepo, client)

	actions, err := inbound.NewRegistry(cfg.Pull.Actions,
		inbound.NewPersonImport(log, client),
		inbound.NewWorksReconcile(log, client, historyRepo, queueRepo, entityRepo, changes, txm),
		inbound.NewWebhook(log, client, cfg.Registry.WebhookCallbackURL),
	)
	if err != nil {
		pool.Close()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("inbound actions: %w", err)
	}

	return &App{
		Config:    cfg,
		Log:       log,
		pool:      pool,
		telemetry: tel,
		Queue:     queueRepo,
		History:   historyRepo,
		Content:   content.NewService(log, entityRepo, changes, txm),
		Push: push.NewService(log, cfg.Push, queueRepo, historyRepo, profileRepo, transport, txm,
			push.WithMetrics(metrics),
			push.WithTracer(tel.Tracer("orcid-sync/push")),
		),
		Pull: pull.NewService(log, profileRepo, entityRepo, actions, cfg.Pull.PageSize,
			pull.WithMetrics(metrics),
			pull.WithTracer(tel.Tracer("orcid-sync/pull")),
		),
	}, nil
}

// Close flushes telemetry and closes the connection pool.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.pool.Close()
	return errors.Join(errs...)
}

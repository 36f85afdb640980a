// Package app assembles the gateway from configuration: tenant directory,
// dedup backend, dispatch pipeline, HTTP surface, and background jobs.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/flemzord/botgate/internal/bot"
	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/config"
	"github.com/flemzord/botgate/internal/cron"
	"github.com/flemzord/botgate/internal/dedup"
	"github.com/flemzord/botgate/internal/directory"
	"github.com/flemzord/botgate/internal/dispatch"
	"github.com/flemzord/botgate/internal/gateway"
	"github.com/flemzord/botgate/internal/logging"
	"github.com/flemzord/botgate/internal/metrics"
)

// App owns every long-lived component and shuts them down in reverse
// dependency order.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store     *directory.Store
	dedup     dedup.Deduplicator
	dedupStop func()
	queue     dispatch.Queue
	pool      *dispatch.WorkerPool
	gateway   *gateway.Gateway
	scheduler *cron.Scheduler
	metrics   *metrics.Metrics
	client    *botapi.Client
}

// New builds the application. logWriter overrides the log destination
// (nil means stderr); tests pass a buffer.
func New(cfg *config.Config, logWriter io.Writer) (*App, error) {
	logger, redactor, err := logging.New(cfg.Log, logWriter)
	if err != nil {
		return nil, err
	}

	store, err := directory.Open(cfg.Directory.Path)
	if err != nil {
		return nil, err
	}

	// Every tenant secret loaded into the process is registered with the
	// redactor before anything else can log it.
	tenants, err := store.List(context.Background())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	for _, t := range tenants {
		redactor.AddLiteral(t.Token)
		redactor.AddLiteral(t.WebhookSecret)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.New(),
	}

	a.client = botapi.NewClient(cfg.API, logger, a.metrics)

	if err := a.buildDedup(); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := bot.NewRegistry()
	if err := registry.Register("echo", func() bot.Handler { return &bot.Echo{} }); err != nil {
		_ = store.Close()
		return nil, err
	}

	var flood *dispatch.FloodLimiter
	if cfg.Dispatch.Flood.Enabled {
		flood = dispatch.NewFloodLimiter(cfg.Dispatch.Flood.MessagesPerMin)
	}
	dispatcher := dispatch.NewDispatcher(registry, a.client, logger, a.metrics, flood)

	sink, err := a.buildSink(dispatcher)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.gateway = gateway.New(cfg.Gateway, store, a.dedup, sink, logger, a.metrics)
	if err := a.gateway.Validate(); err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.Watchdog.Enabled {
		a.scheduler = cron.NewScheduler(logger)
		watchdog := cron.NewWatchdogJob(store, a.client, logger, cfg.Watchdog.Schedule, "")
		if err := a.scheduler.RegisterJob(watchdog); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return a, nil
}

// buildDedup constructs the configured dedup backend.
func (a *App) buildDedup() error {
	switch a.cfg.Dedup.Driver {
	case "redis":
		r, err := dedup.NewRedis(context.Background(), &redis.Options{
			Addr:     a.cfg.Dedup.Redis.Addr,
			Password: a.cfg.Dedup.Redis.Password,
			DB:       a.cfg.Dedup.Redis.DB,
		}, a.cfg.Dedup.TTL)
		if err != nil {
			return err
		}
		a.dedup = r
		a.dedupStop = func() { _ = r.Close() }
	default:
		m := dedup.NewMemory(a.cfg.Dedup.TTL)
		a.dedup = m
		a.dedupStop = m.Close
	}
	return nil
}

// buildSink constructs the dispatch path: the dispatcher itself for inline
// mode, or a queue plus worker pool for queued mode.
func (a *App) buildSink(dispatcher *dispatch.Dispatcher) (dispatch.Sink, error) {
	if a.cfg.Dispatch.Mode != "queued" {
		return dispatcher, nil
	}

	switch a.cfg.Dispatch.Queue.Driver {
	case "redis":
		q, err := dispatch.NewRedisQueue(a.cfg.Dispatch.Queue.Redis.Addr, a.cfg.Dispatch.Queue.Redis.Password, a.cfg.Dispatch.Queue.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.queue = q
	default:
		a.queue = dispatch.NewMemoryQueue(a.cfg.Dispatch.QueueSize)
	}

	a.pool = dispatch.NewWorkerPool(a.queue, dispatcher, a.store, a.logger, a.cfg.Dispatch.Workers)
	return dispatch.NewQueued(a.queue, a.logger), nil
}

// Logger exposes the process logger for the CLI layer.
func (a *App) Logger() *slog.Logger { return a.logger }

// Run starts everything and blocks until ctx is cancelled, then shuts down
// in reverse order: stop accepting, drain workers, stop jobs, close stores.
func (a *App) Run(ctx context.Context) error {
	if a.pool != nil {
		a.pool.Start(ctx)
	}
	if err := a.gateway.Start(ctx); err != nil {
		return err
	}
	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("app: starting scheduler: %w", err)
		}
	}

	a.logger.Info("botgate started",
		"bind", a.cfg.Gateway.Bind,
		"dispatch_mode", a.cfg.Dispatch.Mode,
		"dedup_driver", a.cfg.Dedup.Driver,
	)

	<-ctx.Done()
	a.logger.Info("shutdown requested")

	shutdownCtx := context.Background()
	err := a.gateway.Stop(shutdownCtx)
	if a.pool != nil {
		a.pool.Stop()
	}
	if a.scheduler != nil {
		_ = a.scheduler.Stop(shutdownCtx)
	}
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.dedupStop != nil {
		a.dedupStop()
	}
	if cerr := a.store.Close(); cerr != nil && err == nil {
		err = cerr
	}

	a.logger.Info("botgate stopped")
	return err
}

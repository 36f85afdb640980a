// Package gateway is the webhook ingestion surface. It acknowledges every
// delivery immediately, then authenticates, deduplicates, and dispatches in
// a detached continuation so Telegram's webhook sender never observes
// processing latency or failures.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/botgate/internal/dedup"
	"github.com/flemzord/botgate/internal/directory"
	"github.com/flemzord/botgate/internal/dispatch"
	"github.com/flemzord/botgate/internal/metrics"
)

// Gateway serves webhook ingestion plus the health, metrics, and admin
// endpoints.
type Gateway struct {
	config  Config
	dir     directory.Directory
	dedup   dedup.Deduplicator
	sink    dispatch.Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	server    *http.Server
	startedAt time.Time

	// Continuations detached from acknowledged requests. baseCtx outlives
	// the individual request contexts; Stop cancels it only after draining.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a gateway. metrics may be nil.
func New(cfg Config, dir directory.Directory, dd dedup.Deduplicator, sink dispatch.Sink, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:  cfg,
		dir:     dir,
		dedup:   dd,
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Validate checks the bind address.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q: %w", g.config.Bind, err)
	}
	return nil
}

// Start binds the listener and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.baseCtx, g.cancel = context.WithCancel(context.WithoutCancel(ctx))
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down, then waits for detached continuations to
// drain before cancelling their context.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	err := g.server.Shutdown(shutdownCtx)

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(g.config.DrainTimeout):
		g.logger.Warn("gateway drain timeout, abandoning in-flight deliveries")
	}
	g.cancel()

	return err
}

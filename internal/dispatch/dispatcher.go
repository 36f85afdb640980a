// Package dispatch routes acknowledged, deduplicated deliveries to tenant
// processing units, either inline in the ingestion continuation or through
// a background work queue.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/botgate/internal/bot"
	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/directory"
	"github.com/flemzord/botgate/internal/metrics"
)

// Sink receives deliveries that passed authentication and deduplication.
// The inline implementation is the Dispatcher itself; the queued
// implementation hands the delivery to a work queue.
type Sink interface {
	Deliver(ctx context.Context, tenant *directory.Tenant, deliveryID string, payload []byte)
}

// Dispatcher resolves a tenant's processing unit and invokes it, isolating
// each delivery's faults: an error or panic is logged with full context and
// never propagates. A failed attempt still counts as accepted — the dedup
// record stands, so a poison payload cannot loop forever.
type Dispatcher struct {
	registry *bot.Registry
	client   *botapi.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	flood    *FloodLimiter // nil = no flood limiting
}

var _ Sink = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. metrics and flood may be nil.
func NewDispatcher(registry *bot.Registry, client *botapi.Client, logger *slog.Logger, m *metrics.Metrics, flood *FloodLimiter) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		client:   client,
		logger:   logger,
		metrics:  m,
		flood:    flood,
	}
}

// Deliver implements Sink by invoking the tenant's unit inline.
func (d *Dispatcher) Deliver(ctx context.Context, tenant *directory.Tenant, deliveryID string, payload []byte) {
	logger := d.logger.With(
		"tenant", tenant.Name,
		"delivery_id", deliveryID,
		"unit", tenant.Unit,
	)

	handler, ok := d.registry.Resolve(tenant.Unit)
	if !ok {
		// Configuration error, not a transient fault: log and drop.
		logger.Error("dispatch: unknown processing unit")
		d.metrics.RecordDispatch(tenant.Name, 0, true)
		return
	}

	if d.flood != nil {
		if sender, ok := senderOf(payload); ok && !d.flood.Allow(tenant.WebhookKey, sender) {
			logger.Warn("dispatch: delivery dropped by flood limit", "sender", sender)
			return
		}
	}

	start := time.Now()
	err := d.invoke(ctx, handler, &bot.Context{
		Tenant: *tenant,
		Bot:    d.client.Bot(tenant.Token),
		Logger: logger,
	}, payload)
	elapsed := time.Since(start)

	d.metrics.RecordDispatch(tenant.Name, elapsed, err != nil)
	if err != nil {
		logger.Error("dispatch: processing unit failed",
			"error", err,
			"elapsed", elapsed,
		)
		return
	}
	logger.Debug("dispatch: delivery processed", "elapsed", elapsed)
}

// invoke calls the handler with panic recovery so one delivery's fault
// cannot take down the process.
func (d *Dispatcher) invoke(ctx context.Context, handler bot.Handler, bc *bot.Context, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: unit panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, bc, json.RawMessage(payload))
}

// senderOf extracts the sending user's id from the common update shapes.
// Updates without an attributable sender are never flood-limited.
func senderOf(payload []byte) (int64, bool) {
	var probe struct {
		Message struct {
			From struct {
				ID int64 `json:"id"`
			} `json:"from"`
		} `json:"message"`
		CallbackQuery struct {
			From struct {
				ID int64 `json:"id"`
			} `json:"from"`
		} `json:"callback_query"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0, false
	}
	if probe.Message.From.ID != 0 {
		return probe.Message.From.ID, true
	}
	if probe.CallbackQuery.From.ID != 0 {
		return probe.CallbackQuery.From.ID, true
	}
	return 0, false
}

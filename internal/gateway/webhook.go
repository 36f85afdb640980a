package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flemzord/botgate/internal/directory"
)

// ackBody is the fixed response every webhook delivery receives, regardless
// of what happens afterwards. Uniformity matters: a distinguishable response
// for unknown keys or bad secrets would let callers probe for tenants, and
// any non-200 would make Telegram retry and back off the webhook.
const ackBody = `{"ok":true}`

// secretTokenHeader carries the webhook secret Telegram echoes back on
// every delivery when one was registered via setWebhook.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleWebhook returns the POST /webhook/{webhookKey} handler. It captures
// everything it needs from the request, acknowledges, and hands the rest to
// a detached continuation.
func (g *Gateway) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "webhookKey")
		secret := r.Header.Get(secretTokenHeader)

		// Read the body before acknowledging; after the ack the request
		// stream is gone.
		body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxBodyBytes+1))
		tooLarge := int64(len(body)) > g.config.MaxBodyBytes

		g.writeAck(w)

		if err != nil {
			g.logger.Warn("webhook: body read failed", "error", err)
			return
		}
		if tooLarge {
			g.logger.Warn("webhook: body exceeds limit, dropping",
				"limit", g.config.MaxBodyBytes)
			return
		}

		deliveryID := uuid.NewString()
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.process(key, secret, deliveryID, body)
		}()
	}
}

// writeAck sends the fixed 200 response and flushes it to the socket so the
// sender's HTTP exchange completes before any processing begins.
func (g *Gateway) writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(ackBody)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ackBody)
	_ = http.NewResponseController(w).Flush()
}

// process runs after the acknowledgment: authenticate, deduplicate,
// dispatch. Every drop is silent from the sender's point of view.
func (g *Gateway) process(key, secret, deliveryID string, body []byte) {
	ctx := g.baseCtx
	logger := g.logger.With("delivery_id", deliveryID)

	tenant, err := g.dir.FindByWebhookKey(ctx, key)
	if errors.Is(err, directory.ErrNotFound) {
		g.metrics.RecordAuthFailure()
		logger.Warn("webhook: unknown or disabled webhook key", "webhook_key", key)
		return
	}
	if err != nil {
		logger.Error("webhook: tenant lookup failed", "error", err)
		return
	}
	logger = logger.With("tenant", tenant.Name)

	if tenant.WebhookSecret != "" && !constantTimeEqual(secret, tenant.WebhookSecret) {
		g.metrics.RecordAuthFailure()
		logger.Warn("webhook: secret token mismatch")
		return
	}

	// Only update_id matters here; the unit parses the rest.
	var probe struct {
		UpdateID *int64 `json:"update_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		logger.Warn("webhook: malformed payload", "error", err)
		return
	}

	// An update without update_id cannot be deduplicated; process it
	// every time rather than guess.
	if probe.UpdateID != nil {
		fresh, err := g.dedup.ShouldProcess(ctx, tenant.WebhookKey, *probe.UpdateID)
		if err != nil {
			// Fail open: a broken dedup backend must not stop deliveries.
			logger.Warn("webhook: dedup check failed, processing anyway", "error", err)
		} else if !fresh {
			g.metrics.RecordDuplicate(tenant.Name)
			logger.Debug("webhook: duplicate update dropped", "update_id", *probe.UpdateID)
			return
		}
	}

	g.metrics.RecordDelivery(tenant.Name)
	g.sink.Deliver(ctx, tenant, deliveryID, body)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/botgate/internal/directory"
)

// TenantSummary is the sanitized tenant view for GET /api/tenants.
// Tokens and secrets never leave the process through this endpoint.
type TenantSummary struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	WebhookKey string    `json:"webhook_key"`
	Unit       string    `json:"unit"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleListTenants returns an http.HandlerFunc for GET /api/tenants.
func (g *Gateway) handleListTenants() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lister, ok := g.dir.(directory.Lister)
		if !ok {
			http.Error(w, "tenant listing not supported", http.StatusNotImplemented)
			return
		}

		tenants, err := lister.List(r.Context())
		if err != nil {
			g.logger.Error("admin: tenant list failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		summaries := make([]TenantSummary, 0, len(tenants))
		for _, t := range tenants {
			summaries = append(summaries, TenantSummary{
				ID:         t.ID,
				Name:       t.Name,
				WebhookKey: t.WebhookKey,
				Unit:       t.Unit,
				Enabled:    t.Enabled,
				CreatedAt:  t.CreatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summaries)
	}
}

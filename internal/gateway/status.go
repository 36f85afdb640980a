package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/botgate/internal/directory"
	"github.com/flemzord/botgate/internal/metrics"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Status    string           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	Uptime    float64          `json:"uptime_seconds"`
	Tenants   int              `json:"tenants"`
	Metrics   metrics.Snapshot `json:"metrics"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Status:    "ok",
			StartedAt: g.startedAt,
			Uptime:    time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Metrics:   g.metrics.Snapshot(),
		}

		if lister, ok := g.dir.(directory.Lister); ok {
			if tenants, err := lister.List(r.Context()); err == nil {
				resp.Tenants = len(tenants)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

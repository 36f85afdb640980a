package cron

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/directory"
)

// WatchdogJob periodically asks the Bot API for each enabled tenant's
// webhook registration and surfaces drift: a webhook pointing elsewhere, a
// growing update backlog, or delivery errors reported by Telegram. It only
// observes; re-registering is an operator decision made through the CLI.
type WatchdogJob struct {
	dir      directory.Lister
	client   *botapi.Client
	logger   *slog.Logger
	schedule string
	baseURL  string // expected public webhook base, optional
}

var _ Job = (*WatchdogJob)(nil)

// NewWatchdogJob creates the watchdog. baseURL may be empty, in which case
// URL drift is not checked.
func NewWatchdogJob(dir directory.Lister, client *botapi.Client, logger *slog.Logger, schedule, baseURL string) *WatchdogJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchdogJob{
		dir:      dir,
		client:   client,
		logger:   logger,
		schedule: schedule,
		baseURL:  baseURL,
	}
}

// Name implements Job.
func (j *WatchdogJob) Name() string { return "webhook-watchdog" }

// Schedule implements Job.
func (j *WatchdogJob) Schedule() string { return j.schedule }

// Run implements Job.
func (j *WatchdogJob) Run(ctx context.Context) error {
	tenants, err := j.dir.List(ctx)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		if !tenant.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		j.check(ctx, tenant)
	}
	return nil
}

// check inspects one tenant's webhook state. Failures are logged, not
// returned: one unreachable bot must not stop the sweep.
func (j *WatchdogJob) check(ctx context.Context, tenant directory.Tenant) {
	logger := j.logger.With("tenant", tenant.Name)

	info, err := j.client.Bot(tenant.Token).GetWebhookInfo(ctx)
	if err != nil {
		logger.Warn("watchdog: getWebhookInfo failed", "error", err)
		return
	}

	switch {
	case info.URL == "":
		logger.Warn("watchdog: no webhook registered")
	case j.baseURL != "" && !strings.HasPrefix(info.URL, j.baseURL):
		logger.Warn("watchdog: webhook points elsewhere", "url", info.URL)
	}

	if info.LastErrorMessage != "" {
		logger.Warn("watchdog: telegram reports delivery errors",
			"last_error", info.LastErrorMessage,
			"pending", info.PendingUpdateCount,
		)
		return
	}
	if info.PendingUpdateCount > 0 {
		logger.Info("watchdog: updates pending", "pending", info.PendingUpdateCount)
	}
}

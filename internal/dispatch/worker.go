package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/botgate/internal/directory"
)

// Queued is a Sink that defers processing to a work queue instead of
// running the unit inline.
type Queued struct {
	queue  Queue
	logger *slog.Logger
}

var _ Sink = (*Queued)(nil)

// NewQueued creates a queue-backed sink.
func NewQueued(queue Queue, logger *slog.Logger) *Queued {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queued{queue: queue, logger: logger}
}

// Deliver implements Sink. An enqueue failure is logged and the delivery
// dropped; the webhook was already acknowledged and must stay acknowledged.
func (s *Queued) Deliver(ctx context.Context, tenant *directory.Tenant, deliveryID string, payload []byte) {
	job := Job{
		ID:         deliveryID,
		TenantID:   tenant.ID,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("dispatch: enqueue failed",
			"tenant", tenant.Name,
			"delivery_id", deliveryID,
			"error", err,
		)
	}
}

// WorkerPool drains a Queue with a fixed number of workers, each re-resolving
// the tenant before dispatching so stale jobs for removed or disabled tenants
// are discarded.
type WorkerPool struct {
	queue      Queue
	dispatcher *Dispatcher
	dir        directory.Directory
	logger     *slog.Logger
	workers    int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkerPool creates a pool with the given concurrency.
func NewWorkerPool(queue Queue, dispatcher *Dispatcher, dir directory.Directory, logger *slog.Logger, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		queue:      queue,
		dispatcher: dispatcher,
		dir:        dir,
		logger:     logger,
		workers:    workers,
	}
}

// Start launches the workers. Their context is detached from ctx and
// cancelled only by Stop, so a shutdown of the surrounding run context does
// not abort outbound calls of jobs already picked up.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.logger.Info("dispatch: starting workers", "count", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("dispatch: dequeue failed", "error", err)
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job Job) {
	tenant, err := p.dir.Get(ctx, job.TenantID)
	if errors.Is(err, directory.ErrNotFound) {
		p.logger.Info("dispatch: skipping job for inactive tenant",
			"tenant_id", job.TenantID,
			"delivery_id", job.ID,
		)
		return
	}
	if err != nil {
		p.logger.Error("dispatch: tenant lookup failed",
			"tenant_id", job.TenantID,
			"delivery_id", job.ID,
			"error", err,
		)
		return
	}
	p.dispatcher.Deliver(ctx, tenant, job.ID, job.Payload)
}

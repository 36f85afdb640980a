package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job is one accepted delivery waiting for a worker. Only the tenant id is
// carried; workers re-resolve the tenant at processing time so a tenant
// disabled between acceptance and pickup is skipped.
type Job struct {
	ID         string          `json:"id"`
	TenantID   int64           `json:"tenant_id"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Queue transports jobs from the ingestion continuation to workers.
type Queue interface {
	// Enqueue adds a job. It must not block the caller indefinitely.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. Suitable for single-node
// deployments; jobs are lost on restart.
type MemoryQueue struct {
	jobs chan Job
}

var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates a queue holding at most size pending jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

// Enqueue implements Queue. A full queue fails fast rather than stalling
// the webhook continuation.
func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("dispatch: queue full, dropping delivery %s", job.ID)
	}
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close implements Queue.
func (q *MemoryQueue) Close() error { return nil }

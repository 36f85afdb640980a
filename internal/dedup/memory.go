package dedup

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process dedup store. A single mutex makes the
// check-and-set atomic; a janitor goroutine drops expired records on a
// fixed interval so memory stays bounded independent of traffic.
type Memory struct {
	mu      sync.Mutex
	records map[string]time.Time // key -> expiry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

var _ Deduplicator = (*Memory)(nil)

// NewMemory creates a memory dedup store with the given TTL and starts
// its janitor. Call Close to stop the janitor.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		records: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// ShouldProcess implements Deduplicator. It never returns an error.
func (m *Memory) ShouldProcess(_ context.Context, tenantKey string, updateID int64) (bool, error) {
	key := tenantKey + ":" + strconv.FormatInt(updateID, 10)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.records[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.records[key] = now.Add(m.ttl)
	return true, nil
}

// Close stops the janitor goroutine.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

// janitor sweeps expired records once per minute. The sweep interval is
// fixed rather than traffic-driven so an idle tenant's records still expire.
func (m *Memory) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, expiry := range m.records {
		if !now.Before(expiry) {
			delete(m.records, key)
		}
	}
}

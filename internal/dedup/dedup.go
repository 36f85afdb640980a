// Package dedup guards against duplicate webhook deliveries. Telegram
// retries aggressively when it does not observe a timely acknowledgment,
// so every accepted update id is remembered, scoped per tenant, for a
// window that exceeds Telegram's own retry horizon.
package dedup

import (
	"context"
	"time"
)

// DefaultTTL is the dedup window. Five minutes covers Telegram's retry
// horizon while keeping the store bounded for high-volume tenants.
const DefaultTTL = 5 * time.Minute

// Deduplicator records which (tenantKey, updateID) pairs have already been
// accepted. ShouldProcess is an atomic check-and-set: the first caller for
// a key gets true, every other caller gets false until the record expires.
// Implementations must not let two concurrent callers both observe "absent".
type Deduplicator interface {
	ShouldProcess(ctx context.Context, tenantKey string, updateID int64) (bool, error)
}

// Config selects and tunes the dedup store.
type Config struct {
	Driver string        `yaml:"driver"` // "memory" or "redis"
	TTL    time.Duration `yaml:"ttl"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.Driver == "" {
		c.Driver = "memory"
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

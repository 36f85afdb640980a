package dispatch

import (
	"strconv"
	"sync"
	"time"
)

// FloodConfig tunes the per-sender flood limiter.
type FloodConfig struct {
	Enabled        bool `yaml:"enabled"`
	MessagesPerMin int  `yaml:"messages_per_min"`
}

// Defaults fills zero values with sensible defaults.
func (c *FloodConfig) Defaults() {
	if c.MessagesPerMin <= 0 {
		c.MessagesPerMin = 20
	}
}

// FloodLimiter applies a sliding-window message limit per (tenant, sender)
// so one chatty user cannot monopolize a tenant's processing. It guards
// dispatch only; the webhook acknowledgment is never delayed or withheld.
type FloodLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFloodLimiter creates a limiter allowing messagesPerMin events per
// sender per minute.
func NewFloodLimiter(messagesPerMin int) *FloodLimiter {
	if messagesPerMin <= 0 {
		messagesPerMin = 20
	}
	return &FloodLimiter{
		events: make(map[string][]time.Time),
		limit:  messagesPerMin,
		window: time.Minute,
		now:    time.Now,
	}
}

// Allow records one event for the sender and reports whether it is within
// the limit.
func (f *FloodLimiter) Allow(tenantKey string, senderID int64) bool {
	key := tenantKey + ":" + strconv.FormatInt(senderID, 10)
	now := f.now()
	cutoff := now.Add(-f.window)

	f.mu.Lock()
	defer f.mu.Unlock()

	events := f.events[key]
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	events = events[i:]

	if len(events) >= f.limit {
		f.events[key] = events
		return false
	}
	f.events[key] = append(events, now)
	return true
}

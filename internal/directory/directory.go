// Package directory holds the tenant registry: one record per configured
// bot, keyed by an opaque webhook routing token. The core only reads it;
// mutation happens through the admin CLI.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no matching enabled tenant exists. The
// gateway treats it identically to a wrong secret so the webhook surface
// never reveals which tenants exist.
var ErrNotFound = errors.New("directory: tenant not found")

// Tenant is one registered bot configuration.
type Tenant struct {
	ID            int64
	Name          string
	Token         string // bot credential, never logged
	WebhookKey    string // opaque path segment, unique
	WebhookSecret string // compared against X-Telegram-Bot-Api-Secret-Token
	Unit          string // processing unit type identifier
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Directory is the read-side interface the core consumes. Both lookups are
// filtered to enabled tenants.
type Directory interface {
	// FindByWebhookKey resolves a tenant by its webhook routing token.
	FindByWebhookKey(ctx context.Context, key string) (*Tenant, error)
	// Get resolves a tenant by id. Queue workers re-resolve through this
	// so a tenant disabled after enqueue is not processed.
	Get(ctx context.Context, id int64) (*Tenant, error)
}

// Lister extends Directory with enumeration, used by the watchdog job,
// the admin endpoints, and the CLI.
type Lister interface {
	Directory
	List(ctx context.Context) ([]Tenant, error)
}

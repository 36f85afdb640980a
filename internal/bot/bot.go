// Package bot defines the processing unit contract: the tenant-specific
// logic a webhook delivery is dispatched to after it has been acknowledged
// and deduplicated.
package bot

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flemzord/botgate/internal/botapi"
	"github.com/flemzord/botgate/internal/directory"
)

// Context carries everything a processing unit needs for one delivery:
// the tenant's identity, a client bound to the tenant's credential, and a
// logger pre-scoped with tenant and delivery attributes.
type Context struct {
	Tenant directory.Tenant
	Bot    *botapi.Bot
	Logger *slog.Logger
}

// Handler is a processing unit. Handle receives the raw update payload
// exactly as Telegram delivered it; errors are logged by the dispatcher
// and never surfaced to Telegram.
type Handler interface {
	Handle(ctx context.Context, bc *Context, payload json.RawMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, bc *Context, payload json.RawMessage) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, bc *Context, payload json.RawMessage) error {
	return f(ctx, bc, payload)
}

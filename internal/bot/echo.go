package bot

import (
	"context"
	"encoding/json"

	"github.com/flemzord/botgate/internal/botapi"
)

// Echo is the built-in reference unit: it repeats any text message back to
// the chat it came from. Useful for verifying a tenant's webhook wiring
// end to end before real bot logic exists.
type Echo struct{}

var _ Handler = (*Echo)(nil)

// Handle implements Handler.
func (e *Echo) Handle(ctx context.Context, bc *Context, payload json.RawMessage) error {
	var update botapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		return err
	}

	msg := update.Message
	if msg == nil || msg.Text == "" {
		bc.Logger.Debug("echo: skipping update without message text")
		return nil
	}

	_, err := bc.Bot.SendMessage(ctx, msg.Chat.ID, msg.Text, nil)
	return err
}

package botapi

import (
	"context"
	"fmt"
)

// Bot binds a Client to one tenant's credential. Processing units receive a
// Bot, never the raw token.
type Bot struct {
	client *Client
	token  string
}

// Bot returns a client bound to the given bot token.
func (c *Client) Bot(token string) *Bot {
	return &Bot{client: c, token: token}
}

// Call invokes an arbitrary Bot API method. See Client.Call for retry
// semantics; the returned envelope is never nil.
func (b *Bot) Call(ctx context.Context, method string, params Params) *Response {
	return b.client.Call(ctx, b.token, method, params)
}

// call invokes method and decodes the result into v (if v is non-nil).
func (b *Bot) call(ctx context.Context, method string, params Params, v any) error {
	resp := b.Call(ctx, method, params)
	if err := resp.Err(); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return resp.Decode(v)
}

// GetMe returns the bot's user information. Useful as a token check.
func (b *Bot) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := b.call(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessage sends a text message. extra carries optional fields such as
// parse_mode or reply_markup.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, extra Params) (*Message, error) {
	params := Params{"chat_id": chatID, "text": text}
	merge(params, extra)
	var msg Message
	if err := b.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhoto sends a photo. photo may be a file_id, a remote URL, or a local
// file path (uploaded as multipart).
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, photo string, extra Params) (*Message, error) {
	params := Params{"chat_id": chatID, "photo": photo}
	merge(params, extra)
	var msg Message
	if err := b.call(ctx, "sendPhoto", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument sends a general file. document may be a file_id, a remote
// URL, or a local file path (uploaded as multipart).
func (b *Bot) SendDocument(ctx context.Context, chatID int64, document string, extra Params) (*Message, error) {
	params := Params{"chat_id": chatID, "document": document}
	merge(params, extra)
	var msg Message
	if err := b.call(ctx, "sendDocument", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendChatAction sends a chat action such as "typing".
func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.call(ctx, "sendChatAction", Params{"chat_id": chatID, "action": action}, nil)
}

// AnswerCallbackQuery acknowledges a callback query.
func (b *Bot) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, extra Params) error {
	params := Params{"callback_query_id": callbackQueryID}
	merge(params, extra)
	return b.call(ctx, "answerCallbackQuery", params, nil)
}

// SetWebhook configures the webhook URL for receiving updates.
func (b *Bot) SetWebhook(ctx context.Context, url, secret string, allowedUpdates []string) error {
	params := Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if len(allowedUpdates) > 0 {
		params["allowed_updates"] = allowedUpdates
	}
	return b.call(ctx, "setWebhook", params, nil)
}

// DeleteWebhook removes the current webhook integration.
func (b *Bot) DeleteWebhook(ctx context.Context) error {
	return b.call(ctx, "deleteWebhook", nil, nil)
}

// GetWebhookInfo returns the current webhook state.
func (b *Bot) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := b.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FileURL returns the download URL for a file path returned by getFile.
func (b *Bot) FileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", b.client.cfg.BaseURL, b.token, filePath)
}

func merge(dst, src Params) {
	for key, value := range src {
		dst[key] = value
	}
}

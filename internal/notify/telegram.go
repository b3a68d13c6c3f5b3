package notify

import (
	"context"
	"fmt"

	"solana-signal-trader/internal/httpclient"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramSender posts notifications with the Bot API sendMessage method.
type TelegramSender struct {
	endpoint string
	chatID   string
	http     *httpclient.Client
}

// NewTelegramSender creates a sender for a bot token and chat. apiURL may be
// empty for the public Bot API.
func NewTelegramSender(apiURL, token, chatID string, opts ...httpclient.Option) *TelegramSender {
	if apiURL == "" {
		apiURL = defaultTelegramAPI
	}
	return &TelegramSender{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", apiURL, token),
		chatID:   chatID,
		http:     httpclient.New("telegram", opts...),
	}
}

// Send posts "title\nmessage" as plain text.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    title + "\n" + message,
	}

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := t.http.PostJSON(ctx, "send_message", t.endpoint, payload, &resp); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram: %s", resp.Description)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}

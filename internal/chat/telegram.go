package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig configures the Bot API poller.
type TelegramConfig struct {
	Token       string
	APIURL      string        // defaults to https://api.telegram.org
	PollTimeout time.Duration // long-poll timeout passed to getUpdates
	RetryDelay  time.Duration // pause after a failed poll
	Buffer      int
}

// TelegramSource polls the Telegram Bot API getUpdates endpoint.
// Messages and channel posts visible to the bot become events; the sender is
// the author's user id, or the posting chat id for channel posts.
type TelegramSource struct {
	cfg    TelegramConfig
	client *http.Client
	log    logrus.FieldLogger
}

var _ Source = (*TelegramSource)(nil)

// NewTelegramSource creates a TelegramSource.
func NewTelegramSource(cfg TelegramConfig, log logrus.FieldLogger) *TelegramSource {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultTelegramAPI
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TelegramSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.PollTimeout + 10*time.Second},
		log:    log.WithField("component", "chat-telegram"),
	}
}

type telegramUpdates struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

type telegramUpdate struct {
	UpdateID    int64            `json:"update_id"`
	Message     *telegramMessage `json:"message"`
	ChannelPost *telegramMessage `json:"channel_post"`
}

type telegramMessage struct {
	Date       int64         `json:"date"`
	Text       string        `json:"text"`
	Caption    string        `json:"caption"`
	From       *telegramPeer `json:"from"`
	SenderChat *telegramPeer `json:"sender_chat"`
	Chat       telegramPeer  `json:"chat"`
}

type telegramPeer struct {
	ID int64 `json:"id"`
}

// Subscribe starts polling. Poll failures are logged and retried.
func (s *TelegramSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	if s.cfg.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}

	events := make(chan Event, s.cfg.Buffer)
	go s.run(ctx, events)
	return events, nil
}

func (s *TelegramSource) run(ctx context.Context, events chan<- Event) {
	defer close(events)

	var offset int64
	for ctx.Err() == nil {
		updates, err := s.poll(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Warn("getUpdates failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.RetryDelay):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			event, ok := toEvent(u)
			if !ok {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *TelegramSource) poll(ctx context.Context, offset int64) ([]telegramUpdate, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(s.cfg.PollTimeout.Seconds())))
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", s.cfg.APIURL, s.cfg.Token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var out telegramUpdates
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram: %s", out.Description)
	}
	return out.Result, nil
}

func toEvent(u telegramUpdate) (Event, bool) {
	msg := u.Message
	if msg == nil {
		msg = u.ChannelPost
	}
	if msg == nil {
		return Event{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return Event{}, false
	}

	var sender int64
	switch {
	case msg.From != nil:
		sender = msg.From.ID
	case msg.SenderChat != nil:
		sender = msg.SenderChat.ID
	default:
		sender = msg.Chat.ID
	}

	return Event{
		SenderID:   strconv.FormatInt(sender, 10),
		Text:       text,
		ReceivedAt: time.Unix(msg.Date, 0),
	}, true
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}

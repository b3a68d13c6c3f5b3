package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebsocketConfig configures the relay connection.
type WebsocketConfig struct {
	// URL of the chat relay, e.g. ws://localhost:8081/events.
	URL string
	// Subscribe is written as JSON after every (re)connect when non-nil.
	Subscribe any
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages; pongs extend it.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the events channel.
	Buffer int
}

// DefaultWebsocketConfig returns default relay configuration.
func DefaultWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            256,
	}
}

// relayFrame is a message pushed by the relay.
type relayFrame struct {
	SenderID flexID `json:"sender_id"`
	Text     string `json:"text"`
	Date     int64  `json:"date,omitempty"` // unix seconds
}

// WebsocketSource reads chat events from a websocket relay that forwards
// messages of a logged-in chat account as JSON frames.
type WebsocketSource struct {
	cfg WebsocketConfig
	log logrus.FieldLogger
}

var _ Source = (*WebsocketSource)(nil)

// NewWebsocketSource creates a WebsocketSource.
func NewWebsocketSource(cfg WebsocketConfig, log logrus.FieldLogger) *WebsocketSource {
	def := DefaultWebsocketConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WebsocketSource{cfg: cfg, log: log.WithField("component", "chat-ws")}
}

// Subscribe dials the relay and streams events until ctx is done.
// The initial dial error is returned; later disconnects are retried with
// exponential backoff.
func (s *WebsocketSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, s.cfg.Buffer)
	go s.run(ctx, conn, events)
	return events, nil
}

func (s *WebsocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	if s.cfg.Subscribe != nil {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := conn.WriteJSON(s.cfg.Subscribe); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write subscribe: %w", err)
		}
	}
	return conn, nil
}

// run owns the connection lifecycle: read until failure, then reconnect.
func (s *WebsocketSource) run(ctx context.Context, conn *websocket.Conn, events chan<- Event) {
	defer close(events)

	delay := s.cfg.ReconnectDelay
	for {
		err := s.readConn(ctx, conn, events)
		if ctx.Err() != nil {
			return
		}
		s.log.WithError(err).WithField("retry_in", delay).Warn("relay connection lost")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > s.cfg.MaxReconnectDelay {
				delay = s.cfg.MaxReconnectDelay
			}

			conn, err = s.dial(ctx)
			if err == nil {
				s.log.Info("relay reconnected")
				delay = s.cfg.ReconnectDelay
				break
			}
			s.log.WithError(err).WithField("retry_in", delay).Warn("reconnect failed")
		}
	}
}

// readConn reads frames from conn until an error or ctx cancellation.
func (s *WebsocketSource) readConn(ctx context.Context, conn *websocket.Conn, events chan<- Event) error {
	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)

	// Unblock ReadMessage on shutdown.
	go func() {
		select {
		case <-ctx.Done():
			writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			writeMu.Unlock()
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	go s.pingLoop(conn, &writeMu, done)

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		event, ok := s.decode(message)
		if !ok {
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WebsocketSource) pingLoop(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *WebsocketSource) decode(message []byte) (Event, bool) {
	var frame relayFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		s.log.WithError(err).Debug("ignoring undecodable frame")
		return Event{}, false
	}
	if frame.Text == "" {
		return Event{}, false
	}

	received := time.Now()
	if frame.Date > 0 {
		received = time.Unix(frame.Date, 0)
	}
	return Event{
		SenderID:   string(frame.SenderID),
		Text:       frame.Text,
		ReceivedAt: received,
	}, true
}

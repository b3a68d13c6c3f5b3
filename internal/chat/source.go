// Package chat delivers inbound chat messages to the signal router.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Event is one inbound chat message.
type Event struct {
	SenderID   string    `json:"sender_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Source emits chat events until ctx is cancelled, then closes the channel.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// flexID decodes identifiers sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

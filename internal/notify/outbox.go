package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"academy/internal/queue"
)

// MessageType tags outbox entries carrying a WhatsApp handoff.
const MessageType = "whatsapp"

// Handoff is the outbox payload: the composed message and its URI.
type Handoff struct {
	Message
	URI    string `json:"uri"`
	Reason string `json:"reason"`
}

// Outbox hands composed messages to an external dispatcher. Delivery is
// not tracked.
type Outbox struct {
	q queue.Queue
}

// NewOutbox wraps q. A nil queue makes Publish a no-op.
func NewOutbox(q queue.Queue) *Outbox {
	return &Outbox{q: q}
}

// Enabled reports whether messages go anywhere.
func (o *Outbox) Enabled() bool { return o != nil && o.q != nil }

// Publish enqueues every message tagged with reason.
func (o *Outbox) Publish(ctx context.Context, reason string, msgs []Message) error {
	if !o.Enabled() {
		return nil
	}
	for _, m := range msgs {
		body, err := json.Marshal(Handoff{Message: m, URI: m.URI(), Reason: reason})
		if err != nil {
			return fmt.Errorf("notify: encode handoff: %w", err)
		}
		if err := o.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
			return fmt.Errorf("notify: publish handoff: %w", err)
		}
	}
	return nil
}

// Decode reads a Handoff from an outbox message.
func Decode(msg queue.Message) (Handoff, error) {
	var h Handoff
	if msg.Type != MessageType {
		return h, fmt.Errorf("notify: unexpected message type %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Body, &h); err != nil {
		return h, fmt.Errorf("notify: decode handoff: %w", err)
	}
	return h, nil
}

// Package notify announces finished uploads to subscribers.
package notify

import (
	"context"
	"log/slog"
)

// EventTypeAttribute is the message attribute subscribers filter on.
const EventTypeAttribute = "event_type"

// Message is one fire-and-forget notification.
type Message struct {
	Body      []byte
	EventType string
}

// Publisher delivers a message. A nil error means the transport accepted it;
// delivery to subscribers is not confirmed.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Nop drops messages. Used when no topic is configured.
type Nop struct {
	Logger *slog.Logger
}

func (n Nop) Publish(ctx context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.DebugContext(ctx, "notification dropped, no topic configured", "event_type", msg.EventType)
	}
	return nil
}

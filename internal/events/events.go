// Package events publishes account lifecycle events to the configured broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ailice/ailice/internal/mq"
)

const (
	TypeRegistered = "account.registered"
	TypeLoggedIn   = "account.logged_in"
)

// Event is the payload published for an account action. It never carries
// the password.
type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id,omitempty"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

// Publisher delivers account events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// MQPublisher encodes events as JSON and sends them to one mq channel.
type MQPublisher struct {
	queue   *mq.MQ
	channel string
}

func NewMQPublisher(queue *mq.MQ, channel string) *MQPublisher {
	return &MQPublisher{queue: queue, channel: channel}
}

func (p *MQPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	attrs := map[string]string{
		"type":         event.Type,
		"content_type": "application/json",
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

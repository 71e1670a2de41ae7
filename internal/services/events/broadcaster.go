package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeInteractionStarted   EventType = "interaction.started"
	EventTypeLine                 EventType = "dialogue.line"
	EventTypeOptions              EventType = "dialogue.options"
	EventTypeInteractionClosed    EventType = "interaction.closed"
	EventTypeTransactionCompleted EventType = "transaction.completed"
)

// Event represents a generic event structure
type Event struct {
	Type          EventType              `json:"type"`
	InteractionID string                 `json:"interaction_id"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// Publisher sends interaction events to subscribers
type Publisher interface {
	Publish(ctx context.Context, interactionID uuid.UUID, event Event) error
}

// Channel returns the Pub/Sub channel for an interaction
func Channel(interactionID uuid.UUID) string {
	return fmt.Sprintf("interaction-events:%s", interactionID.String())
}

// FromPublished converts a recorded presenter call into an event
func FromPublished(interactionID uuid.UUID, p dialogue.Published) Event {
	ev := Event{InteractionID: interactionID.String()}
	switch p.Kind {
	case dialogue.PublishedLine:
		ev.Type = EventTypeLine
		ev.Data = map[string]interface{}{"line": p.Line}
	case dialogue.PublishedOptions:
		ev.Type = EventTypeOptions
		ev.Data = map[string]interface{}{"options": p.Options}
	case dialogue.PublishedClose:
		ev.Type = EventTypeInteractionClosed
	}
	return ev
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish publishes an event to the interaction-specific channel
func (b *Broadcaster) Publish(ctx context.Context, interactionID uuid.UUID, event Event) error {
	channel := Channel(interactionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}

// Subscribe opens a subscription to an interaction's channel. Callers close it
func (b *Broadcaster) Subscribe(ctx context.Context, interactionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(interactionID))
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, Event) error { return nil }

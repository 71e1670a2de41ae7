package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
)

func TestBroadcaster_PublishAndSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	sub := b.Subscribe(ctx, id)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	ev := FromPublished(id, dialogue.Published{Kind: dialogue.PublishedLine, Line: "Welcome in!"})
	require.NoError(t, b.Publish(ctx, id, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, Channel(id), msg.Channel)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, EventTypeLine, got.Type)
	assert.Equal(t, id.String(), got.InteractionID)
	assert.Equal(t, "Welcome in!", got.Data["line"])
}

func TestFromPublished(t *testing.T) {
	id := uuid.New()

	opts := FromPublished(id, dialogue.Published{Kind: dialogue.PublishedOptions,
		Options: []dialogue.Option{{ID: dialogue.OptionDecline, Label: "No"}}})
	assert.Equal(t, EventTypeOptions, opts.Type)
	assert.Len(t, opts.Data["options"], 1)

	closed := FromPublished(id, dialogue.Published{Kind: dialogue.PublishedClose})
	assert.Equal(t, EventTypeInteractionClosed, closed.Type)
	assert.Nil(t, closed.Data)
}

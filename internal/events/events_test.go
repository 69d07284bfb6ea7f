package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ailice/ailice/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
	err     error
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channel = channel
	b.data = data
	b.attrs = attrs
	return "msg-1", nil
}

func (b *recordingBackend) Subscribe(context.Context, string, mq.Handler) error { return nil }

func (b *recordingBackend) Close() error { return nil }

func TestMQPublisherPublish(t *testing.T) {
	backend := &recordingBackend{}
	pub := NewMQPublisher(mq.New(backend), "ailice.accounts")

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	err := pub.Publish(context.Background(), Event{
		Type:     TypeRegistered,
		UserID:   "u-1",
		Email:    "a@x.com",
		Username: "al",
		At:       at,
	})
	require.NoError(t, err)

	assert.Equal(t, "ailice.accounts", backend.channel)
	assert.Equal(t, TypeRegistered, backend.attrs["type"])

	var got Event
	require.NoError(t, json.Unmarshal(backend.data, &got))
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.True(t, at.Equal(got.At))
	assert.NotContains(t, string(backend.data), "password")
}

func TestMQPublisherFillsTimestamp(t *testing.T) {
	backend := &recordingBackend{}
	pub := NewMQPublisher(mq.New(backend), "c")

	require.NoError(t, pub.Publish(context.Background(), Event{Type: TypeLoggedIn}))

	var got Event
	require.NoError(t, json.Unmarshal(backend.data, &got))
	assert.False(t, got.At.IsZero())
}

func TestMQPublisherError(t *testing.T) {
	backend := &recordingBackend{err: errors.New("broker down")}
	pub := NewMQPublisher(mq.New(backend), "c")

	err := pub.Publish(context.Background(), Event{Type: TypeLoggedIn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

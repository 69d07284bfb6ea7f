package mq

import (
	"context"
	"testing"

	"github.com/ailice/ailice/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenNone(t *testing.T) {
	for _, backend := range []string{"", "none", " NONE "} {
		queue, err := Open(context.Background(), config.EventsConfig{Backend: backend})
		require.NoError(t, err)
		assert.Nil(t, queue)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.EventsConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "unknown events backend")
}

func TestOpenRequiresSettings(t *testing.T) {
	_, err := Open(context.Background(), config.EventsConfig{Backend: config.EventsBackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(context.Background(), config.EventsConfig{Backend: config.EventsBackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

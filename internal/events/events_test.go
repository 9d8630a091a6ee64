package events

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	ctx := context.Background()
	assert.NoError(t, p.PublishEpisode(ctx, EpisodeEvent{EpisodeID: "ep-1", Status: "lost"}))
	assert.NoError(t, p.PublishSession(ctx, SessionEvent{AgentID: "a-1", Event: SessionCreated}))
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	pub, err := NewNATSPublisher("nats://127.0.0.1:1", "pacman", zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, pub)
}

func TestNATSPublisher_CloseWithoutConnection(t *testing.T) {
	pub := &NATSPublisher{subject: "pacman", logger: zerolog.Nop()}
	assert.NotPanics(t, pub.Close)
}

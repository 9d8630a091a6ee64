package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vertwheel/pacman-p2/internal/events"
	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/policy"
	"github.com/vertwheel/pacman-p2/internal/types"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEpisode(ctx context.Context, event events.EpisodeEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishSession(ctx context.Context, event events.SessionEvent) error {
	return m.Called(ctx, event).Error(0)
}

func sessionEvent(name string) interface{} {
	return mock.MatchedBy(func(e events.SessionEvent) bool { return e.Event == name })
}

func newService(t *testing.T, publisher events.Publisher) *AgentService {
	t.Helper()
	logger := zerolog.New(io.Discard)
	return NewAgentService(publisher, metrics.NewCollector(logger), &logger)
}

func seed(v int64) *int64 { return &v }

func TestCreateSessionPublishesEvent(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishSession", mock.Anything, sessionEvent(events.SessionCreated)).Return(nil).Once()
	svc := newService(t, pub)

	sess, err := svc.CreateSession(context.Background(), types.CreateAgentRequest{Policy: "hungry", Seed: seed(3)})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "hungry", sess.Policy)
	assert.EqualValues(t, 3, sess.Seed)
	assert.Equal(t, 1, svc.Len())
	pub.AssertExpectations(t)
}

func TestCreateSessionUnknownPolicy(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	_, err := svc.CreateSession(context.Background(), types.CreateAgentRequest{Policy: "teleport"})
	assert.ErrorIs(t, err, policy.ErrUnknownPolicy)
	assert.Zero(t, svc.Len())
}

func TestDecideTracksTicks(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "hungry", Seed: seed(1)})
	require.NoError(t, err)

	snap := game.Snapshot{
		Legal:     []game.Action{game.North, game.East, game.Stop},
		Pacman:    game.Position{X: 1, Y: 1},
		FoodCells: []game.Position{{X: 4, Y: 1}},
	}
	resp, err := svc.Decide(ctx, sess.ID, snap)
	require.NoError(t, err)
	assert.Equal(t, game.East, resp.Action)
	assert.EqualValues(t, 1, resp.Tick)

	resp, err = svc.Decide(ctx, sess.ID, snap)
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Tick)

	info, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.Ticks)
	assert.Equal(t, game.East, info.LastAction)
}

func TestDecideErrors(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	ctx := context.Background()

	_, err := svc.Decide(ctx, "missing", game.Snapshot{Legal: []game.Action{game.Stop}})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "random"})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, sess.ID, game.Snapshot{})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = svc.Decide(ctx, sess.ID, game.Snapshot{Legal: []game.Action{"Up"}})
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestSessionsKeepSeparateMemory(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	ctx := context.Background()
	a, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "randomish", Seed: seed(5)})
	require.NoError(t, err)
	b, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "randomish", Seed: seed(5)})
	require.NoError(t, err)

	only := game.Snapshot{Legal: []game.Action{game.West, game.Stop}}
	resp, err := svc.Decide(ctx, a.ID, only)
	require.NoError(t, err)
	assert.Equal(t, game.West, resp.Action)

	// b has never moved, so its first decision is independent of a's memory.
	both := game.Snapshot{Legal: []game.Action{game.North, game.West, game.Stop}}
	respA, err := svc.Decide(ctx, a.ID, both)
	require.NoError(t, err)
	assert.Equal(t, game.West, respA.Action)

	infoB, err := svc.GetSession(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, infoB.Ticks)
}

func TestDeleteSession(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishSession", mock.Anything, sessionEvent(events.SessionCreated)).Return(nil)
	pub.On("PublishSession", mock.Anything, sessionEvent(events.SessionDeleted)).Return(errors.New("nats down")).Once()
	svc := newService(t, pub)
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "west"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSession(ctx, sess.ID))
	assert.ErrorIs(t, svc.DeleteSession(ctx, sess.ID), ErrSessionNotFound)

	_, err = svc.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	pub.AssertExpectations(t)
}

func TestExpireIdle(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	svc.WithNow(func() time.Time { return now })

	stale, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "random"})
	require.NoError(t, err)

	now = base.Add(4 * time.Minute)
	fresh, err := svc.CreateSession(ctx, types.CreateAgentRequest{Policy: "random"})
	require.NoError(t, err)

	now = base.Add(6 * time.Minute)
	expired := svc.ExpireIdle(ctx, 5*time.Minute)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)

	_, err = svc.GetSession(ctx, fresh.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, svc.Len())
}

func TestPolicies(t *testing.T) {
	svc := newService(t, events.NoopPublisher{})
	assert.Equal(t, policy.Names(), svc.Policies())
	assert.Contains(t, svc.Policies(), "corners-avoid-ghost")
}

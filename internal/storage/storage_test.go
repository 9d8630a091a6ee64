package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/types"
)

func newEpisode(id string) types.Episode {
	return types.Episode{
		ID:        id,
		Policy:    "hungry",
		Layout:    "small",
		Seed:      7,
		Status:    types.EpisodeStatusRunning,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transitions(episodeID string, n int) []types.Transition {
	out := make([]types.Transition, n)
	for i := range out {
		out[i] = types.Transition{
			EpisodeID: episodeID,
			Step:      i,
			Position:  game.Position{X: i, Y: 1},
			Action:    game.East,
			Reward:    -1,
			Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		}
	}
	return out
}

func TestMemoryStore_EpisodeLifecycle(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	ep := newEpisode("ep-1")
	require.NoError(t, store.CreateEpisode(ctx, ep))
	assert.ErrorIs(t, store.CreateEpisode(ctx, ep), ErrConflict)

	ep.Steps = 12
	ep = ep.Finish(types.EpisodeStatusWon, time.Now())
	require.NoError(t, store.UpdateEpisode(ctx, ep))

	got, err := store.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, types.EpisodeStatusWon, got.Status)
	assert.Equal(t, 12, got.Steps)

	_, err = store.GetEpisode(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateEpisode(ctx, newEpisode("missing")), ErrNotFound)
}

func TestMemoryStore_TransitionsFilteredByEpisode(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.CreateEpisode(ctx, newEpisode("a")))
	require.NoError(t, store.CreateEpisode(ctx, newEpisode("b")))

	require.NoError(t, store.AppendTransitions(ctx, transitions("a", 3)))
	require.NoError(t, store.AppendTransitions(ctx, transitions("b", 2)))

	got, err := store.ListTransitions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, tr := range got {
		assert.Equal(t, i, tr.Step)
	}

	_, err = store.ListTransitions(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EvictsOldestTransitions(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()
	require.NoError(t, store.CreateEpisode(ctx, newEpisode("a")))

	require.NoError(t, store.AppendTransitions(ctx, transitions("a", 6)))
	assert.Equal(t, 4, store.Len())

	got, err := store.ListTransitions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 2, got[0].Step)
	assert.Equal(t, 5, got[3].Step)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
}

// TestPostgresStore runs against a real database when PACMAN_TEST_DATABASE_URL
// is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PACMAN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PACMAN_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	id := uuid.NewString()
	ep := newEpisode(id)
	require.NoError(t, store.CreateEpisode(ctx, ep))
	assert.ErrorIs(t, store.CreateEpisode(ctx, ep), ErrConflict)

	require.NoError(t, store.AppendTransitions(ctx, transitions(id, 3)))
	got, err := store.ListTransitions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	ep.Score = 42
	require.NoError(t, store.UpdateEpisode(ctx, ep.Finish(types.EpisodeStatusLost, time.Now().UTC())))
	stored, err := store.GetEpisode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 42, stored.Score)
	assert.Equal(t, types.EpisodeStatusLost, stored.Status)
	require.NotNil(t, stored.EndedAt)

	_, err = store.GetEpisode(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

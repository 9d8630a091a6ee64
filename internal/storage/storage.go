package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/vertwheel/pacman-p2/internal/types"
)

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate insert.
	ErrConflict = errors.New("conflict")
)

// Recorder captures the persistence operations the actor and server rely on.
type Recorder interface {
	CreateEpisode(ctx context.Context, episode types.Episode) error
	UpdateEpisode(ctx context.Context, episode types.Episode) error
	GetEpisode(ctx context.Context, id string) (types.Episode, error)
	AppendTransitions(ctx context.Context, transitions []types.Transition) error
	ListTransitions(ctx context.Context, episodeID string) ([]types.Transition, error)
	Close() error
}

// MemoryStore is an in-memory Recorder for development/testing. It keeps at
// most maxTransitions transitions, evicting the oldest first.
type MemoryStore struct {
	mu             sync.RWMutex
	episodes       map[string]types.Episode
	transitions    []types.Transition
	maxTransitions int
}

// NewMemoryStore constructs a MemoryStore. maxTransitions <= 0 means
// unbounded.
func NewMemoryStore(maxTransitions int) *MemoryStore {
	return &MemoryStore{
		episodes:       make(map[string]types.Episode),
		maxTransitions: maxTransitions,
	}
}

// CreateEpisode inserts a new episode, enforcing uniqueness.
func (m *MemoryStore) CreateEpisode(_ context.Context, episode types.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.episodes[episode.ID]; exists {
		return ErrConflict
	}
	m.episodes[episode.ID] = episode
	return nil
}

// UpdateEpisode replaces the stored episode.
func (m *MemoryStore) UpdateEpisode(_ context.Context, episode types.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.episodes[episode.ID]; !ok {
		return ErrNotFound
	}
	m.episodes[episode.ID] = episode
	return nil
}

// GetEpisode fetches an episode by ID.
func (m *MemoryStore) GetEpisode(_ context.Context, id string) (types.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	episode, ok := m.episodes[id]
	if !ok {
		return types.Episode{}, ErrNotFound
	}
	return episode, nil
}

// AppendTransitions adds a batch, evicting the oldest entries past capacity.
func (m *MemoryStore) AppendTransitions(_ context.Context, transitions []types.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transitions...)
	if m.maxTransitions > 0 && len(m.transitions) > m.maxTransitions {
		overflow := len(m.transitions) - m.maxTransitions
		m.transitions = append(m.transitions[:0], m.transitions[overflow:]...)
	}
	return nil
}

// ListTransitions returns an episode's transitions in step order.
func (m *MemoryStore) ListTransitions(_ context.Context, episodeID string) ([]types.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.episodes[episodeID]; !ok {
		return nil, ErrNotFound
	}
	var out []types.Transition
	for _, tr := range m.transitions {
		if tr.EpisodeID == episodeID {
			out = append(out, tr)
		}
	}
	return out, nil
}

// Len reports the number of retained transitions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transitions)
}

// Close satisfies Recorder.
func (m *MemoryStore) Close() error { return nil }

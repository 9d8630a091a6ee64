package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/events"
	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/policy"
	"github.com/vertwheel/pacman-p2/internal/types"
)

var (
	// ErrSessionNotFound indicates the agent session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSnapshot indicates a state snapshot no policy can decide on.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

type session struct {
	mu     sync.Mutex
	info   types.AgentSession
	policy policy.Policy
}

// AgentService hosts one policy instance per session.
type AgentService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	events  events.Publisher
	metrics *metrics.Collector
	logger  *zerolog.Logger
	now     func() time.Time
}

// NewAgentService constructs an AgentService instance.
func NewAgentService(publisher events.Publisher, collector *metrics.Collector, logger *zerolog.Logger) *AgentService {
	return &AgentService{
		sessions: make(map[string]*session),
		events:   publisher,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow allows tests to override the time source.
func (s *AgentService) WithNow(now func() time.Time) {
	s.now = now
}

// Policies lists the policies a session can be created with.
func (s *AgentService) Policies() []string {
	return policy.Names()
}

// CreateSession builds a fresh policy instance. Without a seed the session
// is seeded from the clock.
func (s *AgentService) CreateSession(ctx context.Context, req types.CreateAgentRequest) (types.AgentSession, error) {
	if err := req.Validate(); err != nil {
		return types.AgentSession{}, err
	}
	now := s.now().UTC()
	seed := now.UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	id := uuid.NewString()
	p, err := policy.New(req.Policy, policy.Options{
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: s.logger.With().Str("agent_id", id).Logger(),
	})
	if err != nil {
		return types.AgentSession{}, err
	}
	sess := &session{
		info: types.AgentSession{
			ID:         id,
			Policy:     req.Policy,
			Seed:       seed,
			CreatedAt:  now,
			LastSeenAt: now,
		},
		policy: p,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info().Str("agent_id", id).Str("policy", req.Policy).Int64("seed", seed).Msg("session created")
	s.publish(ctx, sess.info, events.SessionCreated)
	return sess.info, nil
}

// GetSession returns session metadata.
func (s *AgentService) GetSession(_ context.Context, id string) (types.AgentSession, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return types.AgentSession{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.info, nil
}

// Decide runs one tick of the session's policy against snapshot. Calls for
// the same session are serialised.
func (s *AgentService) Decide(_ context.Context, id string, snapshot game.Snapshot) (types.ActionResponse, error) {
	if err := snapshot.Validate(); err != nil {
		return types.ActionResponse{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return types.ActionResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := time.Now()
	action, err := sess.policy.GetAction(snapshot)
	if err != nil {
		return types.ActionResponse{}, fmt.Errorf("policy %s: %w", sess.info.Policy, err)
	}
	if _, err := game.MakeMove(action, snapshot.Legal); err != nil {
		s.logger.Error().Err(err).Str("agent_id", id).Str("policy", sess.info.Policy).Msg("policy chose an illegal action")
		return types.ActionResponse{}, err
	}
	sess.info.Ticks++
	sess.info.LastAction = action
	sess.info.LastSeenAt = s.now().UTC()
	s.metrics.DecisionMade(sess.info.Policy, string(action), time.Since(start))

	return types.ActionResponse{AgentID: id, Action: action, Tick: sess.info.Ticks}, nil
}

// DeleteSession drops a session and its policy memory.
func (s *AgentService) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	info := sess.info
	sess.mu.Unlock()
	s.logger.Info().Str("agent_id", id).Int64("ticks", info.Ticks).Msg("session deleted")
	s.publish(ctx, info, events.SessionDeleted)
	return nil
}

// ExpireIdle removes every session not seen for longer than idle and
// returns them oldest first.
func (s *AgentService) ExpireIdle(ctx context.Context, idle time.Duration) []types.AgentSession {
	cutoff := s.now().UTC().Add(-idle)

	s.mu.Lock()
	var expired []types.AgentSession
	for id, sess := range s.sessions {
		sess.mu.Lock()
		info := sess.info
		sess.mu.Unlock()
		if info.LastSeenAt.Before(cutoff) {
			expired = append(expired, info)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].LastSeenAt.Before(expired[j].LastSeenAt)
	})
	for _, info := range expired {
		s.publish(ctx, info, events.SessionExpired)
	}
	return expired
}

// Len reports the number of live sessions.
func (s *AgentService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *AgentService) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *AgentService) publish(ctx context.Context, info types.AgentSession, event string) {
	payload := events.SessionEvent{
		AgentID: info.ID,
		Policy:  info.Policy,
		Event:   event,
		Ticks:   info.Ticks,
	}
	if err := s.events.PublishSession(ctx, payload); err != nil {
		s.logger.Error().Err(err).Str("agent_id", info.ID).Msg("failed to publish session event")
	}
}

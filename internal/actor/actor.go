package actor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/config"
	"github.com/vertwheel/pacman-p2/internal/engine"
	"github.com/vertwheel/pacman-p2/internal/events"
	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/policy"
	"github.com/vertwheel/pacman-p2/internal/storage"
	"github.com/vertwheel/pacman-p2/internal/types"
)

// ErrEpisodeTimeout is recorded when an episode exceeds its deadline.
var ErrEpisodeTimeout = errors.New("episode timed out")

// Summary aggregates the episodes an actor has played.
type Summary struct {
	Episodes   int      `json:"episodes"`
	Won        int      `json:"won"`
	Lost       int      `json:"lost"`
	Truncated  int      `json:"truncated"`
	Failed     int      `json:"failed"`
	TotalScore int      `json:"total_score"`
	EpisodeIDs []string `json:"episode_ids"`
}

func (s *Summary) add(ep types.Episode) {
	s.Episodes++
	s.TotalScore += ep.Score
	s.EpisodeIDs = append(s.EpisodeIDs, ep.ID)
	switch ep.Status {
	case types.EpisodeStatusWon:
		s.Won++
	case types.EpisodeStatusLost:
		s.Lost++
	case types.EpisodeStatusTruncated:
		s.Truncated++
	case types.EpisodeStatusFailed:
		s.Failed++
	}
}

// Actor plays episodes of one policy on one layout and records them
type Actor struct {
	cfg    *config.Config
	layout *engine.Layout

	store   storage.Recorder
	events  events.Publisher
	metrics *metrics.Collector
	logger  zerolog.Logger
	now     func() time.Time

	// Episode tracking
	episodeCount     int
	transitionBuffer []types.Transition
	summary          Summary
}

// New creates a new actor instance
func New(cfg *config.Config, store storage.Recorder, publisher events.Publisher, collector *metrics.Collector, logger zerolog.Logger) (*Actor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid actor config: %w", err)
	}
	layout, err := cfg.LoadLayout()
	if err != nil {
		return nil, err
	}

	a := &Actor{
		cfg:              cfg,
		layout:           layout,
		store:            store,
		events:           publisher,
		metrics:          collector,
		logger:           logger,
		now:              time.Now,
		transitionBuffer: make([]types.Transition, 0, cfg.BatchSize),
	}

	a.logger.Info().
		Str("policy", cfg.Policy).
		Str("layout", layout.Name).
		Int("width", layout.Width).
		Int("height", layout.Height).
		Int("ghosts", len(layout.Ghosts)).
		Msg("Actor initialized")

	return a, nil
}

// Summary returns the totals so far.
func (a *Actor) Summary() Summary {
	s := a.summary
	s.EpisodeIDs = append([]string(nil), a.summary.EpisodeIDs...)
	return s
}

// Run plays episodes until MaxEpisodes is reached or ctx is cancelled
func (a *Actor) Run(ctx context.Context) error {
	a.logger.Info().Int("max_episodes", a.cfg.MaxEpisodes).Msg("Actor starting main loop")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Context cancelled, stopping actor")
			return ctx.Err()
		default:
		}

		if a.cfg.MaxEpisodes > 0 && a.episodeCount >= a.cfg.MaxEpisodes {
			a.logger.Info().Int("episodes", a.episodeCount).Msg("Reached maximum episodes, stopping")
			return nil
		}

		ep, err := a.runEpisode(ctx)
		a.episodeCount++
		a.summary.add(ep)
		if err != nil {
			a.logger.Error().Err(err).Str("episode_id", ep.ID).Int("episode", a.episodeCount).Msg("Episode failed")
			// Continue with next episode rather than stopping
			continue
		}
		if a.episodeCount%10 == 0 {
			a.logger.Info().Int("episodes", a.episodeCount).Msg("Completed episodes")
		}
	}
}

func (a *Actor) episodeSeed() int64 {
	if a.cfg.Seed != 0 {
		return a.cfg.Seed + int64(a.episodeCount)
	}
	return a.now().UnixNano()
}

// runEpisode plays one game and records its transitions. The returned
// episode is always populated, including on error.
func (a *Actor) runEpisode(ctx context.Context) (types.Episode, error) {
	episodeCtx, cancel := context.WithTimeout(ctx, a.cfg.EpisodeTimeout)
	defer cancel()

	seed := a.episodeSeed()
	ep := types.Episode{
		ID:        uuid.NewString(),
		Policy:    a.cfg.Policy,
		Layout:    a.layout.Name,
		Seed:      seed,
		Status:    types.EpisodeStatusRunning,
		StartedAt: a.now().UTC(),
	}
	logger := a.logger.With().Str("episode_id", ep.ID).Logger()
	if err := a.store.CreateEpisode(episodeCtx, ep); err != nil {
		return a.finish(ctx, ep, types.EpisodeStatusFailed, fmt.Errorf("failed to record episode: %w", err))
	}
	a.publish(episodeCtx, ep)

	p, err := policy.New(a.cfg.Policy, policy.Options{
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: logger,
	})
	if err != nil {
		return a.finish(ctx, ep, types.EpisodeStatusFailed, err)
	}
	g := engine.New(a.layout, rand.New(rand.NewSource(^seed)))

	for !g.Done() {
		select {
		case <-episodeCtx.Done():
			ep = a.snapshotResult(ep, g)
			if errors.Is(episodeCtx.Err(), context.DeadlineExceeded) {
				return a.finish(ctx, ep, types.EpisodeStatusFailed, ErrEpisodeTimeout)
			}
			return a.finish(ctx, ep, types.EpisodeStatusFailed, episodeCtx.Err())
		default:
		}

		if g.Steps() >= a.cfg.MaxSteps {
			logger.Debug().Int("steps", g.Steps()).Msg("Episode truncated")
			return a.finish(ctx, a.snapshotResult(ep, g), types.EpisodeStatusTruncated, nil)
		}

		// Select action using policy
		state := g.Snapshot()
		start := time.Now()
		action, err := p.GetAction(state)
		if err != nil {
			return a.finish(ctx, a.snapshotResult(ep, g), types.EpisodeStatusFailed, fmt.Errorf("failed to select action: %w", err))
		}
		a.metrics.DecisionMade(a.cfg.Policy, string(action), time.Since(start))

		// Take step in environment
		step := g.Steps()
		result, err := g.Step(action)
		if err != nil {
			return a.finish(ctx, a.snapshotResult(ep, g), types.EpisodeStatusFailed, fmt.Errorf("failed to step game: %w", err))
		}

		a.transitionBuffer = append(a.transitionBuffer, types.Transition{
			EpisodeID: ep.ID,
			Step:      step,
			Position:  state.Pacman,
			Action:    action,
			Reward:    result.Reward,
			Done:      result.Done,
			Timestamp: a.now().UTC(),
		})

		// Flush buffer if full
		if len(a.transitionBuffer) >= a.cfg.BatchSize {
			if err := a.flushBuffer(episodeCtx); err != nil {
				return a.finish(ctx, a.snapshotResult(ep, g), types.EpisodeStatusFailed, err)
			}
		}
	}

	status := types.EpisodeStatusLost
	if g.Outcome() == engine.OutcomeWin {
		status = types.EpisodeStatusWon
	}
	return a.finish(ctx, a.snapshotResult(ep, g), status, nil)
}

func (a *Actor) snapshotResult(ep types.Episode, g *engine.Game) types.Episode {
	ep.Steps = g.Steps()
	ep.Score = g.Score()
	ep.FoodLeft = g.FoodLeft()
	return ep
}

// finish flushes what is buffered, stores the final episode and reports it.
// Persistence outlives cancellation of the run so the record is complete.
func (a *Actor) finish(ctx context.Context, ep types.Episode, status types.EpisodeStatus, cause error) (types.Episode, error) {
	persistCtx := context.WithoutCancel(ctx)
	if cause != nil {
		ep.LastError = cause.Error()
	}
	ep = ep.Finish(status, a.now().UTC())

	if err := a.flushBuffer(persistCtx); err != nil {
		a.logger.Error().Err(err).Str("episode_id", ep.ID).Msg("Failed to flush transitions")
		a.transitionBuffer = a.transitionBuffer[:0]
	}
	if err := a.store.UpdateEpisode(persistCtx, ep); err != nil && !errors.Is(err, storage.ErrNotFound) {
		a.logger.Error().Err(err).Str("episode_id", ep.ID).Msg("Failed to update episode")
	}

	a.publish(persistCtx, ep)
	a.metrics.EpisodeCompleted(ep.ID, ep.Policy, string(ep.Status), ep.Steps, ep.Score, ep.EndedAt.Sub(ep.StartedAt))

	return ep, cause
}

func (a *Actor) publish(ctx context.Context, ep types.Episode) {
	event := events.EpisodeEvent{
		EpisodeID: ep.ID,
		Policy:    ep.Policy,
		Layout:    ep.Layout,
		Status:    string(ep.Status),
		Steps:     ep.Steps,
		Score:     ep.Score,
		LastError: ep.LastError,
	}
	if err := a.events.PublishEpisode(ctx, event); err != nil {
		a.logger.Error().Err(err).Str("episode_id", ep.ID).Str("status", event.Status).Msg("Failed to publish episode event")
	}
}

// flushBuffer sends accumulated transitions to the recorder
func (a *Actor) flushBuffer(ctx context.Context) error {
	if len(a.transitionBuffer) == 0 {
		return nil
	}

	a.logger.Debug().Int("transitions", len(a.transitionBuffer)).Msg("Flushing transitions")

	batch := append([]types.Transition(nil), a.transitionBuffer...)
	if err := a.store.AppendTransitions(ctx, batch); err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}

	// Clear buffer
	a.transitionBuffer = a.transitionBuffer[:0]
	return nil
}

// Close flushes anything still buffered.
func (a *Actor) Close() error {
	return a.flushBuffer(context.Background())
}

package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/vertwheel/pacman-p2/internal/game"
	"github.com/vertwheel/pacman-p2/internal/policy"
)

// ErrInvalidRequest indicates a malformed API payload.
var ErrInvalidRequest = errors.New("invalid request")

// EpisodeStatus enumerates the lifecycle states of a recorded episode.
type EpisodeStatus string

const (
	EpisodeStatusRunning   EpisodeStatus = "running"
	EpisodeStatusWon       EpisodeStatus = "won"
	EpisodeStatusLost      EpisodeStatus = "lost"
	EpisodeStatusTruncated EpisodeStatus = "truncated"
	EpisodeStatusFailed    EpisodeStatus = "failed"
)

// Finished reports whether the status is terminal.
func (s EpisodeStatus) Finished() bool {
	return s != EpisodeStatusRunning
}

// Episode captures one game played by a policy.
type Episode struct {
	ID        string        `json:"id"`
	Policy    string        `json:"policy"`
	Layout    string        `json:"layout"`
	Seed      int64         `json:"seed"`
	Status    EpisodeStatus `json:"status"`
	Steps     int           `json:"steps"`
	Score     int           `json:"score"`
	FoodLeft  int           `json:"food_left"`
	LastError string        `json:"last_error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// Finish stamps the terminal status and end time.
func (e Episode) Finish(status EpisodeStatus, endedAt time.Time) Episode {
	e.Status = status
	e.EndedAt = &endedAt
	return e
}

// Transition is one decision and its immediate result.
type Transition struct {
	EpisodeID string        `json:"episode_id"`
	Step      int           `json:"step"`
	Position  game.Position `json:"position"`
	Action    game.Action   `json:"action"`
	Reward    int           `json:"reward"`
	Done      bool          `json:"done"`
	Timestamp time.Time     `json:"timestamp"`
}

// CreateAgentRequest is the payload accepted when opening a policy session.
type CreateAgentRequest struct {
	Policy string `json:"policy"`
	Seed   *int64 `json:"seed,omitempty"`
}

// Validate ensures the requested policy exists.
func (r CreateAgentRequest) Validate() error {
	if r.Policy == "" {
		return fmt.Errorf("%w: policy is required", ErrInvalidRequest)
	}
	if !policy.Known(r.Policy) {
		return fmt.Errorf("%w: %q", policy.ErrUnknownPolicy, r.Policy)
	}
	return nil
}

// AgentSession describes a hosted policy instance.
type AgentSession struct {
	ID         string      `json:"id"`
	Policy     string      `json:"policy"`
	Seed       int64       `json:"seed"`
	Ticks      int64       `json:"ticks"`
	LastAction game.Action `json:"last_action,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	LastSeenAt time.Time   `json:"last_seen_at"`
}

// ActionResponse is returned for every decision request.
type ActionResponse struct {
	AgentID string      `json:"agent_id"`
	Action  game.Action `json:"action"`
	Tick    int64       `json:"tick"`
}

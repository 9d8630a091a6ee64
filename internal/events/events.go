package events

import "context"

// Publisher is implemented by downstream fan-out mechanisms.
type Publisher interface {
	PublishEpisode(ctx context.Context, payload EpisodeEvent) error
	PublishSession(ctx context.Context, payload SessionEvent) error
}

// EpisodeEvent is emitted when an episode starts and again when it ends.
type EpisodeEvent struct {
	EpisodeID string `json:"episode_id"`
	Policy    string `json:"policy"`
	Layout    string `json:"layout"`
	Status    string `json:"status"`
	Steps     int    `json:"steps"`
	Score     int    `json:"score"`
	LastError string `json:"last_error,omitempty"`
}

// SessionEvent tracks hosted policy session lifecycle transitions.
type SessionEvent struct {
	AgentID string `json:"agent_id"`
	Policy  string `json:"policy"`
	Event   string `json:"event"`
	Ticks   int64  `json:"ticks"`
}

// Session lifecycle event names.
const (
	SessionCreated = "created"
	SessionDeleted = "deleted"
	SessionExpired = "expired"
)

// NoopPublisher drops every event; useful for tests.
type NoopPublisher struct{}

// PublishEpisode satisfies Publisher.
func (NoopPublisher) PublishEpisode(context.Context, EpisodeEvent) error { return nil }

// PublishSession satisfies Publisher.
func (NoopPublisher) PublishSession(context.Context, SessionEvent) error { return nil }

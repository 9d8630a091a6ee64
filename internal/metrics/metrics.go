package metrics

import (
	"time"

	"github.com/rs/zerolog"
)

// Collector emits metric events as structured log lines
type Collector struct {
	logger zerolog.Logger
}

func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// Track a single policy decision
func (c *Collector) DecisionMade(policy, action string, latency time.Duration) {
	c.logger.Debug().
		Str("metric", "decision_made").
		Str("policy", policy).
		Str("action", action).
		Dur("latency", latency).
		Msg("Decision metric")
}

// Track finished episodes
func (c *Collector) EpisodeCompleted(episodeID, policy, status string, steps, score int, duration time.Duration) {
	c.logger.Info().
		Str("metric", "episode_completed").
		Str("episode_id", episodeID).
		Str("policy", policy).
		Str("status", status).
		Int("steps", steps).
		Int("score", score).
		Dur("duration", duration).
		Msg("Episode metric")
}

// Track API request metrics
func (c *Collector) APIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	c.logger.Info().
		Str("metric", "api_request").
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Msg("API request metric")
}

// Track sessions removed by the reaper
func (c *Collector) SessionExpired(agentID, policy string, idle time.Duration) {
	c.logger.Warn().
		Str("metric", "session_expired").
		Str("agent_id", agentID).
		Str("policy", policy).
		Dur("idle", idle).
		Msg("Session expired metric")
}

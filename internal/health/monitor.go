package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vertwheel/pacman-p2/internal/metrics"
	"github.com/vertwheel/pacman-p2/internal/service"
)

// Config holds session reaper configuration
type Config struct {
	CheckInterval      time.Duration
	SessionIdleTimeout time.Duration
}

// Monitor expires idle policy sessions in the background
type Monitor struct {
	agents  *service.AgentService
	metrics *metrics.Collector
	config  Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewMonitor creates a new session monitor
func NewMonitor(agents *service.AgentService, collector *metrics.Collector, config Config, logger zerolog.Logger) *Monitor {
	return &Monitor{
		agents:  agents,
		metrics: collector,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the monitoring loop and blocks until ctx is done
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.logger.Info().
		Dur("check_interval", m.config.CheckInterval).
		Dur("idle_timeout", m.config.SessionIdleTimeout).
		Msg("Starting session monitor")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Session monitor stopped")
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep expires idle sessions once and returns how many were removed.
func (m *Monitor) Sweep(ctx context.Context) int {
	expired := m.agents.ExpireIdle(ctx, m.config.SessionIdleTimeout)
	now := m.now().UTC()
	for _, sess := range expired {
		idle := now.Sub(sess.LastSeenAt)
		m.logger.Warn().
			Str("agent_id", sess.ID).
			Str("policy", sess.Policy).
			Int64("ticks", sess.Ticks).
			Time("last_seen", sess.LastSeenAt).
			Msg("Expiring idle session")
		m.metrics.SessionExpired(sess.ID, sess.Policy, idle)
	}
	if len(expired) > 0 {
		m.logger.Info().Int("expired", len(expired)).Int("remaining", m.agents.Len()).Msg("Session sweep finished")
	}
	return len(expired)
}

package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher implements Publisher using NATS
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher creates a new NATS-backed publisher
func NewNATSPublisher(natsURL, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL, nats.Name("pacman-agents"))
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// Close drains and closes the NATS connection
func (n *NATSPublisher) Close() {
	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			n.conn.Close()
		}
	}
}

// PublishEpisode publishes episode events to NATS
func (n *NATSPublisher) PublishEpisode(ctx context.Context, event EpisodeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := n.subject + ".episodes"
	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish episode event")
		return err
	}

	// Losses and failures also go to a routing key for alerting
	routingKey := ""
	switch event.Status {
	case "lost":
		routingKey = subject + ".lost"
	case "failed":
		routingKey = subject + ".failed"
	}
	if routingKey != "" {
		if err := n.conn.Publish(routingKey, data); err != nil {
			n.logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish to routing key")
		}
	}

	n.logger.Debug().
		Str("episode_id", event.EpisodeID).
		Str("status", event.Status).
		Str("subject", subject).
		Msg("Published episode event")

	return nil
}

// PublishSession publishes session events to NATS
func (n *NATSPublisher) PublishSession(ctx context.Context, event SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := n.subject + ".sessions"
	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish session event")
		return err
	}

	n.logger.Debug().
		Str("agent_id", event.AgentID).
		Str("event", event.Event).
		Str("subject", subject).
		Msg("Published session event")

	return nil
}

package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	buf.Reset()
	return fields
}

func TestCollectorEmitsMetricFields(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(zerolog.New(&buf).Level(zerolog.DebugLevel))

	c.DecisionMade("hungry", "North", time.Millisecond)
	fields := decodeLine(t, &buf)
	assert.Equal(t, "decision_made", fields["metric"])
	assert.Equal(t, "hungry", fields["policy"])
	assert.Equal(t, "North", fields["action"])

	c.EpisodeCompleted("ep-1", "west", "won", 40, 512, time.Second)
	fields = decodeLine(t, &buf)
	assert.Equal(t, "episode_completed", fields["metric"])
	assert.Equal(t, "won", fields["status"])
	assert.EqualValues(t, 40, fields["steps"])
	assert.EqualValues(t, 512, fields["score"])

	c.APIRequest("POST", "/api/v1/agents", 201, time.Millisecond)
	fields = decodeLine(t, &buf)
	assert.Equal(t, "api_request", fields["metric"])
	assert.EqualValues(t, 201, fields["status_code"])

	c.SessionExpired("agent-1", "random", time.Minute)
	fields = decodeLine(t, &buf)
	assert.Equal(t, "session_expired", fields["metric"])
	assert.Equal(t, "warn", fields["level"])
}

func TestCollectorRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(zerolog.New(&buf).Level(zerolog.InfoLevel))
	c.DecisionMade("random", "Stop", 0)
	assert.Zero(t, buf.Len())
}

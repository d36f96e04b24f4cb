package telemetry_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khota/quizrunner/internal/telemetry"
)

func TestNewLogger(t *testing.T) {
	t.Run("json with level filter", func(t *testing.T) {
		var buf bytes.Buffer
		l := telemetry.NewLogger(&buf, telemetry.LogConfig{Level: "warn"})

		l.Info("hidden")
		l.Warn("shown", "session", "s1")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "shown", rec["msg"])
		assert.Equal(t, "s1", rec["session"])
	})

	t.Run("text format and unknown level", func(t *testing.T) {
		var buf bytes.Buffer
		l := telemetry.NewLogger(&buf, telemetry.LogConfig{Format: "TEXT", Level: "loud"})

		l.Debug("hidden")
		l.Info("shown")

		assert.Contains(t, buf.String(), "msg=shown")
		assert.NotContains(t, buf.String(), "hidden")
	})
}

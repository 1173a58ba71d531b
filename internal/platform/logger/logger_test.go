package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json handler honours the level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, "warn", "json", false)
		log.Info("dropped")
		log.Warn("kept", "session_token", "abc")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "abc", line["session_token"])
		assert.NotContains(t, line, "source")
	})

	t.Run("debug adds source", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "error", "json", true).Debug("visible")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Contains(t, line, "source")
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "info", "text", false).Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

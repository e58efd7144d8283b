package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/ipmifanctl/internal/errors"
	"codeberg.org/mutker/ipmifanctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"debug", logger.DebugLevel},
		{"INFO", logger.InfoLevel},
		{"", logger.InfoLevel},
		{"warning", logger.WarnLevel},
		{"warn", logger.WarnLevel},
		{"error", logger.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logger.ParseLevel("loud")
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidLogLevel, errors.CodeOf(err))
}

func TestInitWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Level: logger.InfoLevel, Output: &buf, IsService: true, NoColor: true})
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.Debug().Msg("hidden")
	logger.Info().Str("address", "10.0.0.1").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "address=10.0.0.1")
}

func TestErrorWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Options{Level: logger.DebugLevel, Output: &buf, IsService: true, NoColor: true})
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	err := errors.New().New(errors.ErrToolNotFound)
	logger.Default().ErrorWithContext(err, "ipmi", "execute").Msg("cycle failed")

	out := buf.String()
	assert.Contains(t, out, "error_code=tool_not_found")
	assert.Contains(t, out, "component=ipmi")
	assert.Contains(t, out, "operation=execute")
}

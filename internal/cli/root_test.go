package cli

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, effectiveLogLevel(slog.LevelInfo, true))
	assert.Equal(t, slog.LevelDebug, effectiveLogLevel(slog.LevelWarn, true))
	assert.Equal(t, slog.LevelInfo, effectiveLogLevel(slog.LevelInfo, false))
	assert.Equal(t, slog.LevelDebug, effectiveLogLevel(slog.LevelDebug, false))
}

package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Level(t *testing.T) {
	assert.True(t, New("debug", "json").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("WARN", "console").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("bogus", "json").Core().Enabled(zapcore.InfoLevel))
}

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "sessions"})

	log.Warn("send failed", map[string]interface{}{"attempt": 2, "cause": errors.New("timeout")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "sessions", fields["component"])
		assert.Equal(t, int64(2), fields["attempt"])
		assert.Equal(t, "timeout", fields["cause"])
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "d***@example.com", MaskEmail("dana@example.com"))
	assert.Equal(t, "***", MaskEmail("no-at-sign"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
	assert.Equal(t, "***567", MaskPhone("0501234567"))
	assert.Equal(t, "***", MaskPhone("12"))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level    string
		enabled  zapcore.Level
		disabled zapcore.Level
		checkLow bool
	}{
		{"", zap.InfoLevel, zap.DebugLevel, true},
		{"debug", zap.DebugLevel, zap.DebugLevel, false},
		{"WARN", zap.WarnLevel, zap.InfoLevel, true},
		{"error", zap.ErrorLevel, zap.WarnLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(tt.level, "json")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			if tt.checkLow {
				assert.False(t, l.Core().Enabled(tt.disabled))
			}
		})
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("verbose", "json")
	assert.ErrorContains(t, err, "unsupported log level")

	_, err = New("info", "xml")
	assert.ErrorContains(t, err, "unsupported log format")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}

package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", "json", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", "", zapcore.WarnLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			core := logger.Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("%v not enabled", tt.enabled)
			}
			if core.Enabled(tt.muted) {
				t.Errorf("%v enabled", tt.muted)
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

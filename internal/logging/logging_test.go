package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"info", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		l, err := New(tt.level)
		if err != nil {
			t.Fatalf("level %q: %v", tt.level, err)
		}
		if !l.Core().Enabled(tt.want) {
			t.Errorf("level %q: %s should be enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Errorf("level %q: %s should be disabled", tt.level, tt.want-1)
		}
	}

	if _, err := New("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

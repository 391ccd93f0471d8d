package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFieldHelpers(t *testing.T) {
	f := String("k", "v")
	if f.Key != "k" || f.Type != zapcore.StringType || f.String != "v" {
		t.Fatalf("unexpected string field: %+v", f)
	}
	e := Err(errors.New("boom"))
	if e.Key != "error" {
		t.Fatalf("expected error key, got %q", e.Key)
	}
}

func TestNewZapLoggerLevels(t *testing.T) {
	l, err := NewZapLogger("warn")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	l.Info("ignored", zap.String("k", "v"))
	l.Warn("kept", Float64("x", 1.5))

	if _, err := NewZapLogger("not-a-level"); err != nil {
		t.Fatalf("unknown level should fall back to info, got %v", err)
	}
	NewNop().Error("discarded")
}

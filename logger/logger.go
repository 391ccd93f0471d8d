package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field.
type Field = zap.Field

// Logger is a thin wrapper around zap that provides the three log levels we
// need throughout the codebase.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// zapLogger implements Logger using a SugaredLogger internally.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.sugar.Infow(msg, zapFieldsToKV(fields)...)
}
func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.sugar.Warnw(msg, zapFieldsToKV(fields)...)
}
func (l *zapLogger) Error(msg string, fields ...Field) {
	l.sugar.Errorw(msg, zapFieldsToKV(fields)...)
}

// NewZapLogger creates a production logger (JSON encoding, ISO8601 time).
// An unparsable level falls back to info.
func NewZapLogger(level string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{sugar: z.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger { return &zapLogger{sugar: zap.NewNop().Sugar()} }

// The sugared logger takes loosely typed key/value pairs; zap.Field values are
// passed through untouched and rendered with their own encoders.
func zapFieldsToKV(fields []Field) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out
}

func String(k, v string) Field { return zap.String(k, v) }
func Float64(k string, v float64) Field { return zap.Float64(k, v) }
func Int(k string, v int) Field { return zap.Int(k, v) }
func Bool(k string, v bool) Field { return zap.Bool(k, v) }
func Time(k string, v time.Time) Field { return zap.Time(k, v) }
func Duration(k string, v time.Duration) Field { return zap.Duration(k, v) }
func Err(err error) Field { return zap.Error(err) }

package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap sugared logger with the loosely-typed key/value
// methods used throughout the codebase. Child loggers carry scope fields
// (repo, service, tool) added via With.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger for the given mode. "development" (the default when
// mode is empty) logs human-readable console output at debug level;
// "production" logs JSON at info level.
func New(mode string) (*Logger, error) {
	var (
		z   *zap.Logger
		err error
	)
	switch mode {
	case "", "development":
		z, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	case "production":
		z, err = zap.NewProduction(zap.AddCallerSkip(1))
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// With returns a child logger whose entries all carry the given key/value
// pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(args...)}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }

func (l *Logger) Info(msg string, args ...interface{}) { l.sugar.Infow(msg, args...) }

func (l *Logger) Warn(msg string, args ...interface{}) { l.sugar.Warnw(msg, args...) }

func (l *Logger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

// Sync flushes buffered entries. Safe to call in a defer from main.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

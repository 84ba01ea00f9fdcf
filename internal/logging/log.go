// Package logging provides the process-wide structured logger shared by the
// supervisor and the agent runtime.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func init() {
	logger, _ = zap.NewDevelopment()
}

// Init replaces the global logger, choosing a production JSON encoder when
// production is true or a development console encoder otherwise, and
// binding the requested level.
func Init(level string, production bool) error {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Logger returns the global logger.
func Logger() *zap.Logger { return logger }

// SetLogger overrides the global logger, mainly for tests.
func SetLogger(l *zap.Logger) { logger = l }

func Debug(msg string, fields ...zap.Field) { logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { logger.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { logger.Fatal(msg, fields...) }

// With returns a child logger carrying the given fields, used to scope a
// logger to a session or subsystem (e.g. logging.With(zap.String("session",
// id))).
func With(fields ...zap.Field) *zap.Logger { return logger.With(fields...) }

// Sync flushes any buffered log entries; call on process shutdown.
func Sync() error { return logger.Sync() }

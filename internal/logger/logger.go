// Package logger provides the process-wide zap logger, written to stderr or
// to a rotating file.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const LoggerKey = contextKey("logger")

var globalLogger *zap.SugaredLogger

// LoggingConfig defines the configuration for logging.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	Path       string `yaml:"path"`  // empty logs to stderr
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Init initializes the global logger based on configuration.
func Init(cfg LoggingConfig) {
	globalLogger = New(cfg, os.Stderr)
	globalLogger.Debugf("logging initialized (level: %s, path: %q)", parseLevel(cfg.Level), cfg.Path)
}

// New builds a logger without touching the global one. Output goes to a
// rotating file when cfg.Path is set, otherwise to w.
func New(cfg LoggingConfig, w io.Writer) *zap.SugaredLogger {
	writeSyncer := zapcore.AddSync(w)

	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err == nil {
			writeSyncer = zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.Path,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			})
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(encoder, writeSyncer, parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()).Sugar()
}

func parseLevel(s string) zapcore.Level {
	level := zapcore.InfoLevel
	if s == "" {
		return level
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Sync flushes any buffered log entries.
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// Get returns the logger from context or the global logger.
func Get(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerKey).(*zap.SugaredLogger); ok {
			return l
		}
	}
	if globalLogger == nil {
		return zap.NewNop().Sugar()
	}
	return globalLogger
}

// WithContext adds logger to context.
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes log outputs. File output is rotated by lumberjack.
type Config struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size_mb"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Pretty     bool   `mapstructure:"pretty"` // colored console output without fields
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "logs/moonbag.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
		Pretty:     true,
	}
}

// Option adds extra cores to the logger built by New.
type Option func(*[]zapcore.Core, zapcore.Level)

// WithBuffer mirrors every entry into buf for the dashboard.
func WithBuffer(buf *LogBuffer) Option {
	return func(cores *[]zapcore.Core, level zapcore.Level) {
		*cores = append(*cores, buf.Core(level))
	}
}

// WithoutConsole drops stdout output; the TUI owns the terminal.
func WithoutConsole() Option {
	return func(cores *[]zapcore.Core, _ zapcore.Level) {
		*cores = (*cores)[1:]
	}
}

// New builds a logger writing to stdout and, if cfg.File is set, a rotated JSON file.
func New(cfg Config, opts ...Option) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var console zapcore.Core
	if cfg.Pretty {
		console = &FieldFilterCore{core: zapcore.NewCore(PrettyEncoder(), zapcore.Lock(os.Stdout), level)}
	} else {
		console = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level)
	}
	cores := []zapcore.Core{console}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	for _, opt := range opts {
		opt(&cores, level)
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// Sync flushes the logger, ignoring the errors terminals return for stdout.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

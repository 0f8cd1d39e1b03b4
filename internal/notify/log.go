// internal/notify/log.go
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes alerts to the logger. Used when no chat is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.Named("alerts")}
}

func (l *Log) Notify(_ context.Context, message string) error {
	l.logger.Info("🔔 " + message)
	return nil
}

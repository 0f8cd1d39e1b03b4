package logger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogBufferWraps(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		lb.Add(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}

	logs := lb.GetRecentLogs(0)
	assert.Len(t, logs, 3)
	assert.Equal(t, "m2", logs[0].Message)
	assert.Equal(t, "m4", logs[2].Message)

	last := lb.GetRecentLogs(2)
	assert.Equal(t, []string{"m3", "m4"}, []string{last[0].Message, last[1].Message})
	assert.Equal(t, uint64(5), lb.Total())
}

func TestLogBufferPartial(t *testing.T) {
	lb := NewLogBuffer(10)
	lb.Add(LogEntry{Message: "only"})
	logs := lb.GetRecentLogs(5)
	assert.Len(t, logs, 1)
	assert.Equal(t, "only", logs[0].Message)
}

func TestLogBufferCoreCapturesToken(t *testing.T) {
	lb := NewLogBuffer(10)
	log := zap.New(lb.Core(zapcore.InfoLevel))

	log.Debug("hidden")
	log.With(zap.String("token", "MintA")).Info("🚀 Monitor started")
	log.Warn("Price unavailable", zap.String("token", "MintB"))

	logs := lb.GetRecentLogs(0)
	assert.Len(t, logs, 2)
	assert.Equal(t, "MintA", logs[0].Token)
	assert.Equal(t, zapcore.WarnLevel, logs[1].Level)
	assert.Equal(t, "MintB", logs[1].Token)
}

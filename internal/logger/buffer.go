// internal/logger/buffer.go
package logger

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// LogEntry represents a single log entry in the buffer
type LogEntry struct {
	Timestamp time.Time
	Level     zapcore.Level
	Message   string
	Token     string
}

// LogBuffer is a fixed-size ring of recent entries shown by the dashboard.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []LogEntry
	next    int
	wrapped bool
	total   uint64
}

// NewLogBuffer creates a new log buffer with the specified size
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 200
	}
	return &LogBuffer{ring: make([]LogEntry, size)}
}

// Add appends an entry, overwriting the oldest once full.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ring[lb.next] = entry
	lb.next = (lb.next + 1) % len(lb.ring)
	if lb.next == 0 {
		lb.wrapped = true
	}
	lb.total++
}

// GetRecentLogs returns up to limit entries, oldest first.
func (lb *LogBuffer) GetRecentLogs(limit int) []LogEntry {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	count, start := lb.next, 0
	if lb.wrapped {
		count, start = len(lb.ring), lb.next
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}

	logs := make([]LogEntry, 0, count)
	for i := 0; i < count; i++ {
		logs = append(logs, lb.ring[(start+i)%len(lb.ring)])
	}
	return logs
}

// Total returns how many entries were ever added.
func (lb *LogBuffer) Total() uint64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.total
}

// Core returns a zapcore.Core that records entries at or above level.
func (lb *LogBuffer) Core(level zapcore.LevelEnabler) zapcore.Core {
	return &bufferCore{LevelEnabler: level, buf: lb}
}

type bufferCore struct {
	zapcore.LevelEnabler
	buf   *LogBuffer
	token string
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	if token := tokenField(fields); token != "" {
		clone.token = token
	}
	return &clone
}

func (c *bufferCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *bufferCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	token := c.token
	if t := tokenField(fields); t != "" {
		token = t
	}
	c.buf.Add(LogEntry{
		Timestamp: entry.Time,
		Level:     entry.Level,
		Message:   entry.Message,
		Token:     token,
	})
	return nil
}

func (c *bufferCore) Sync() error { return nil }

func tokenField(fields []zapcore.Field) string {
	for _, f := range fields {
		if f.Key == "token" && f.Type == zapcore.StringType {
			return f.String
		}
	}
	return ""
}

package component

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/rovshanmuradov/moonbag/internal/logger"
)

func TestPnLGauge_View(t *testing.T) {
	up := NewPnLGauge(10).SetValue(decimal.NewFromInt(150)).View()
	assert.Contains(t, up, "+150.00%")
	assert.Contains(t, up, "↗")

	down := NewPnLGauge(10).SetValue(decimal.NewFromInt(-30)).View()
	assert.Contains(t, down, "-30.00%")
	assert.Contains(t, down, "↘")

	flat := NewPnLGauge(10).SetValue(decimal.Zero).View()
	assert.Contains(t, flat, "0.00% →")
}

func TestCompactLogViewer_FiltersAndTails(t *testing.T) {
	buf := logger.NewLogBuffer(50)
	now := time.Now()
	buf.Add(logger.LogEntry{Timestamp: now, Level: zapcore.DebugLevel, Message: "cycle evaluated"})
	for i := 0; i < 10; i++ {
		buf.Add(logger.LogEntry{Timestamp: now, Level: zapcore.InfoLevel, Message: "tick"})
	}
	buf.Add(logger.LogEntry{
		Timestamp: now,
		Level:     zapcore.WarnLevel,
		Message:   "Price unavailable",
		Token:     "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr",
	})

	v := NewCompactLogViewer(buf)
	v.SetSize(100, 3)
	out := v.View()

	assert.NotContains(t, out, "cycle evaluated")
	assert.Contains(t, out, "[7GCi...W2hr] Price unavailable")
	assert.Equal(t, 2, strings.Count(out, "tick"))
}

func TestCompactLogViewer_NilBuffer(t *testing.T) {
	assert.Empty(t, NewCompactLogViewer(nil).View())
}

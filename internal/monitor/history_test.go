package monitor

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/moonbag/internal/events"
)

func TestTradeHistory_JournalsExitEvents(t *testing.T) {
	log := zaptest.NewLogger(t)
	th, err := NewTradeHistory(t.TempDir(), 10, log)
	require.NoError(t, err)

	bus := events.NewBus(log, 16)
	th.Attach(bus)
	ctx := context.Background()

	started := events.NewBase(events.MonitoringStarted)
	require.NoError(t, bus.PublishSync(ctx, &events.MonitoringStartedEvent{BaseEvent: started, TokenMint: "MintA"}))

	tp := &events.ExitEvent{
		BaseEvent:  events.NewBase(events.TakeProfitFired),
		TokenMint:  "MintA",
		Rule:       "take_profit",
		Quantity:   d("500"),
		Price:      d("2"),
		EntryPrice: d("1"),
		PeakPrice:  d("2"),
		Signature:  "sig",
	}
	failed := &events.ExitEvent{
		BaseEvent:  events.NewBase(events.SellFailed),
		TokenMint:  "MintA",
		Rule:       "trailing_stop",
		Quantity:   d("500"),
		Price:      d("1.5"),
		EntryPrice: d("1"),
		Error:      errors.New("route not found"),
	}
	require.NoError(t, bus.PublishSync(ctx, tp))
	require.NoError(t, bus.PublishSync(ctx, failed))

	stats := th.GetStatistics()
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 1, stats.FailedTrades)
	assert.True(t, stats.RealizedPnL.Equal(d("500")))
	assert.True(t, stats.ProceedsSOL.Equal(d("1000")))

	trades := th.GetTradesByToken("MintA")
	require.Len(t, trades, 2)
	assert.NotEmpty(t, trades[0].HoldTime)
	assert.Equal(t, "route not found", trades[1].ErrorMsg)

	path := th.Path()
	require.NoError(t, th.Close())
	require.NoError(t, bus.Shutdown(ctx))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeaders(), records[0])
	assert.Equal(t, "true", records[1][14])
	assert.Equal(t, "false", records[2][14])
}

func TestTradeHistory_RecentTradesBounded(t *testing.T) {
	th, err := NewTradeHistory(t.TempDir(), 2, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer th.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, th.LogTrade(Trade{TokenMint: "m", Rule: "take_profit", Success: true}))
	}
	assert.Len(t, th.GetRecentTrades(0), 2)
	assert.Equal(t, 3, th.GetStatistics().TotalTrades)
}

func TestCalculateHoldTime(t *testing.T) {
	start := time.Unix(0, 0)
	assert.Equal(t, "30s", CalculateHoldTime(start, start.Add(30*time.Second)))
	assert.Equal(t, "5m", CalculateHoldTime(start, start.Add(5*time.Minute)))
	assert.Equal(t, "2h15m", CalculateHoldTime(start, start.Add(2*time.Hour+15*time.Minute)))
	assert.Equal(t, "1d3h", CalculateHoldTime(start, start.Add(27*time.Hour)))
}

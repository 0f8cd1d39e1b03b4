package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/moonbag/internal/events"
)

func TestUICacheConcurrentAccess(t *testing.T) {
	cache := NewUICache(zap.NewNop())

	var wg sync.WaitGroup
	numGoroutines := 10
	quotesPerGoroutine := 50

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < quotesPerGoroutine; j++ {
				cache.Set(Quote{
					TokenMint: fmt.Sprintf("token_%d", j),
					Price:     decimal.NewFromInt(int64(id)),
					UpdatedAt: time.Now(),
				})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < quotesPerGoroutine; j++ {
				_, _ = cache.Get(fmt.Sprintf("token_%d", j))
			}
		}()
	}
	wg.Wait()

	quotes, reads, writes := cache.GetStats()
	assert.Equal(t, uint64(quotesPerGoroutine), quotes)
	assert.Equal(t, uint64(numGoroutines*quotesPerGoroutine), reads)
	assert.LessOrEqual(t, writes, uint64(numGoroutines*quotesPerGoroutine))
}

func TestUICache_IgnoresOlderQuote(t *testing.T) {
	cache := NewUICache(zap.NewNop())
	now := time.Now()

	cache.Set(Quote{TokenMint: "A", Price: decimal.NewFromInt(2), UpdatedAt: now})
	cache.Set(Quote{TokenMint: "A", Price: decimal.NewFromInt(1), UpdatedAt: now.Add(-time.Second)})

	q, ok := cache.Get("A")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(2)))
}

func TestUICache_FedByBus(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 16)
	cache := NewUICache(zaptest.NewLogger(t))
	cache.Attach(bus)

	require.NoError(t, bus.PublishSync(context.Background(), &events.PositionUpdatedEvent{
		BaseEvent:    events.NewBase(events.PositionUpdated),
		TokenMint:    "A",
		CurrentPrice: decimal.RequireFromString("1.5"),
		PnLPercent:   decimal.NewFromInt(50),
	}))
	require.NoError(t, bus.Shutdown(context.Background()))

	q, ok := cache.Get("A")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, q.PnLPercent.Equal(decimal.NewFromInt(50)))
}

func TestUICache_CleanupStale(t *testing.T) {
	cache := NewUICache(zap.NewNop())
	cache.Set(Quote{TokenMint: "old", UpdatedAt: time.Now().Add(-time.Hour)})
	cache.Set(Quote{TokenMint: "new", UpdatedAt: time.Now()})

	assert.Equal(t, 1, cache.CleanupStale(30*time.Minute))
	_, ok := cache.Get("old")
	assert.False(t, ok)
}

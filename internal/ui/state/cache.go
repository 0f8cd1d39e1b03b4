package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/events"
)

// Quote is the last price a monitor saw for a token.
type Quote struct {
	TokenMint  string
	Price      decimal.Decimal
	PnLPercent decimal.Decimal
	UpdatedAt  time.Time
}

// UICache keeps the latest monitor quote per token for the dashboard.
// It is fed by position.updated events.
type UICache struct {
	quotes map[string]Quote
	mu     sync.RWMutex
	logger *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

// NewUICache creates a new UI state cache
func NewUICache(logger *zap.Logger) *UICache {
	return &UICache{
		quotes: make(map[string]Quote),
		logger: logger,
	}
}

// Attach subscribes the cache to position updates on bus.
func (c *UICache) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(c, events.PositionUpdated)
}

// Handle implements events.Handler.
func (c *UICache) Handle(_ context.Context, event events.Event) error {
	e, ok := event.(*events.PositionUpdatedEvent)
	if !ok {
		return nil
	}
	c.Set(Quote{
		TokenMint:  e.TokenMint,
		Price:      e.CurrentPrice,
		PnLPercent: e.PnLPercent,
		UpdatedAt:  e.Timestamp(),
	})
	return nil
}

// Set stores q, ignoring quotes older than the one held.
func (c *UICache) Set(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.quotes[q.TokenMint]; ok && q.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	c.quotes[q.TokenMint] = q
	atomic.AddUint64(&c.writes, 1)
}

// Get returns the last quote of a token.
func (c *UICache) Get(tokenMint string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	q, ok := c.quotes[tokenMint]
	return q, ok
}

// GetStats returns cache statistics
func (c *UICache) GetStats() (quotes, reads, writes uint64) {
	c.mu.RLock()
	quotes = uint64(len(c.quotes))
	c.mu.RUnlock()

	reads = atomic.LoadUint64(&c.reads)
	writes = atomic.LoadUint64(&c.writes)
	return quotes, reads, writes
}

// CleanupStale removes quotes older than the given duration
func (c *UICache) CleanupStale(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for mint, q := range c.quotes {
		if q.UpdatedAt.Before(cutoff) {
			delete(c.quotes, mint)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up stale quotes",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.quotes)))
	}
	return removed
}

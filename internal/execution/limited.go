// =============================
// File: internal/execution/limited.go
// =============================
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Seller executes a full-quantity sell and returns the transaction signature.
type Seller interface {
	Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (string, error)
}

// Throttled bounds the sell rate shared by every monitor using it.
type Throttled struct {
	next    Seller
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottled allows perMinute sells with a burst of one. perMinute <= 0 returns next unchanged.
func NewThrottled(next Seller, perMinute float64, logger *zap.Logger) Seller {
	if perMinute <= 0 {
		return next
	}
	every := time.Duration(float64(time.Minute) / perMinute)
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		logger:  logger,
	}
}

func (t *Throttled) Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (string, error) {
	if !t.limiter.Allow() {
		t.logger.Info("⏳ Sell waiting for rate limit", zap.String("token", tokenMint))
		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("sell rate limit: %w", err)
		}
	}
	return t.next.Sell(ctx, tokenMint, quantity)
}

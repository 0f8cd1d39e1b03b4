// internal/price/limited.go
package price

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limited keeps upstream requests under the provider's rate limit.
type Limited struct {
	source  Source
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewLimited(source Source, perSecond float64, logger *zap.Logger) *Limited {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:  logger,
	}
}

func (l *Limited) Price(ctx context.Context, tokenMint string) (decimal.Decimal, error) {
	if !l.limiter.Allow() {
		l.logger.Debug("Price request throttled", zap.String("token", tokenMint))
		if err := l.limiter.Wait(ctx); err != nil {
			return decimal.Zero, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return l.source.Price(ctx, tokenMint)
}

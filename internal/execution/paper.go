// =============================
// File: internal/execution/paper.go
// =============================
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource prices a token in SOL.
type PriceSource interface {
	Price(ctx context.Context, tokenMint string) (decimal.Decimal, error)
}

// Fill is one simulated sell.
type Fill struct {
	Signature string
	TokenMint string
	Quantity  decimal.Decimal
	Price     decimal.Decimal // zero when no price source is set
	Time      time.Time
}

// PaperSeller pretends every sell succeeds. Used for dry runs.
type PaperSeller struct {
	prices PriceSource // optional
	logger *zap.Logger

	mu    sync.Mutex
	fills []Fill
}

func NewPaperSeller(prices PriceSource, logger *zap.Logger) *PaperSeller {
	return &PaperSeller{prices: prices, logger: logger.Named("paper")}
}

func (p *PaperSeller) Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (string, error) {
	if !quantity.IsPositive() {
		return "", fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}

	fill := Fill{
		Signature: "paper-" + uuid.New().String(),
		TokenMint: tokenMint,
		Quantity:  quantity,
		Time:      time.Now(),
	}
	if p.prices != nil {
		if price, err := p.prices.Price(ctx, tokenMint); err == nil {
			fill.Price = price
		}
	}

	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	p.logger.Info("📝 Paper sell filled",
		zap.String("token", tokenMint),
		zap.String("quantity", quantity.String()),
		zap.String("price_sol", fill.Price.String()),
		zap.String("signature", fill.Signature))
	return fill.Signature, nil
}

// Fills returns a copy of all simulated sells.
func (p *PaperSeller) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

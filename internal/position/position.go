// =============================================
// File: internal/position/position.go
// =============================================
package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle stage of a position.
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusPartiallyExited Status = "PARTIALLY_EXITED"
	StatusClosed          Status = "CLOSED"
)

var (
	ErrInvalidTransition = errors.New("invalid position status transition")
	ErrInvalidQuantity   = errors.New("invalid sell quantity")
)

// Position is a bought token holding managed until full exit.
type Position struct {
	AssetID             string          // Token mint address
	Label               string          // Human readable name, optional
	EntryPrice          decimal.Decimal // Price paid per token (SOL)
	InitialQuantity     decimal.Decimal // Tokens acquired at entry
	RemainingQuantity   decimal.Decimal // Tokens still held
	PeakPrice           decimal.Decimal // Trailing-stop reference, tracked after take-profit
	TakeProfitTriggered bool
	Status              Status
	OpenedAt            time.Time
	UpdatedAt           time.Time
	ClosedAt            time.Time
}

// New creates an OPEN position right after the entry order completed.
func New(assetID string, entryPrice, quantity decimal.Decimal) Position {
	now := time.Now()
	return Position{
		AssetID:           assetID,
		EntryPrice:        entryPrice,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
		PeakPrice:         entryPrice,
		Status:            StatusOpen,
		OpenedAt:          now,
		UpdatedAt:         now,
	}
}

// Validate checks the fields required before monitoring starts.
func (p Position) Validate() error {
	if p.AssetID == "" {
		return fmt.Errorf("asset id cannot be empty")
	}
	if !p.InitialQuantity.IsPositive() {
		return fmt.Errorf("initial quantity must be positive")
	}
	if p.RemainingQuantity.IsNegative() || p.RemainingQuantity.GreaterThan(p.InitialQuantity) {
		return fmt.Errorf("remaining quantity must be within [0, initial]")
	}
	switch p.Status {
	case StatusOpen:
		if p.TakeProfitTriggered {
			return fmt.Errorf("open position cannot have take-profit triggered")
		}
		if !p.RemainingQuantity.Equal(p.InitialQuantity) {
			return fmt.Errorf("open position must hold its initial quantity, remaining %s of %s",
				p.RemainingQuantity, p.InitialQuantity)
		}
	case StatusPartiallyExited:
		if !p.TakeProfitTriggered || !p.RemainingQuantity.IsPositive() {
			return fmt.Errorf("partially exited position needs take-profit triggered and a positive remainder")
		}
	case StatusClosed:
	default:
		return fmt.Errorf("unknown status %q", p.Status)
	}
	return nil
}

// IsClosed reports whether the position reached its terminal state.
func (p Position) IsClosed() bool {
	return p.Status == StatusClosed
}

// Name returns the label if set, otherwise a shortened mint.
func (p Position) Name() string {
	if p.Label != "" {
		return p.Label
	}
	return ShortMint(p.AssetID)
}

// ShortMint shortens a mint address for logs and messages.
func ShortMint(mint string) string {
	if len(mint) >= 8 {
		return mint[:4] + "..." + mint[len(mint)-4:]
	}
	return mint
}

// PnLPercent returns the unrealised change versus entry at the given price.
func (p Position) PnLPercent(price decimal.Decimal) decimal.Decimal {
	ratio := GainRatio(p.EntryPrice, price)
	if ratio.IsZero() {
		return decimal.Zero
	}
	return ratio.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
}

// canTransition lists the only legal status moves.
func canTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusPartiallyExited
	case StatusPartiallyExited:
		return to == StatusClosed
	default:
		return false
	}
}

// ApplyPeak raises the peak price after take-profit. Before take-profit the peak stays at entry.
func (p *Position) ApplyPeak(price decimal.Decimal) {
	if !p.TakeProfitTriggered {
		return
	}
	if price.GreaterThan(p.PeakPrice) {
		p.PeakPrice = price
		p.UpdatedAt = time.Now()
	}
}

// ApplyTakeProfit records a successful partial exit at price.
func (p *Position) ApplyTakeProfit(price, sold decimal.Decimal) error {
	if p.TakeProfitTriggered {
		return fmt.Errorf("%w: take-profit already triggered", ErrInvalidTransition)
	}
	if !canTransition(p.Status, StatusPartiallyExited) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusPartiallyExited)
	}
	// The take-profit sell always leaves a moonbag to trail.
	if !sold.IsPositive() || !sold.LessThan(p.RemainingQuantity) {
		return fmt.Errorf("%w: %s of %s", ErrInvalidQuantity, sold, p.RemainingQuantity)
	}

	p.TakeProfitTriggered = true
	p.PeakPrice = price
	p.RemainingQuantity = p.RemainingQuantity.Sub(sold)
	p.Status = StatusPartiallyExited
	p.UpdatedAt = time.Now()
	return nil
}

// ApplyTrailingStop records the sale of the moonbag and closes the position.
func (p *Position) ApplyTrailingStop() error {
	if !p.TakeProfitTriggered {
		return fmt.Errorf("%w: trailing stop before take-profit", ErrInvalidTransition)
	}
	if !canTransition(p.Status, StatusClosed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusClosed)
	}

	now := time.Now()
	p.RemainingQuantity = decimal.Zero
	p.Status = StatusClosed
	p.UpdatedAt = now
	p.ClosedAt = now
	return nil
}

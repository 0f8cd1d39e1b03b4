// internal/monitor/interfaces.go
package monitor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PriceOracle supplies the current price of a token in SOL.
// Any returned error, including "not found" and transport failures, means no price this cycle.
// Implementations must be safe for concurrent use by several monitors.
type PriceOracle interface {
	Price(ctx context.Context, tokenMint string) (decimal.Decimal, error)
}

// OrderExecutor sells tokens on the trading venue.
// A nil error means the full quantity was sold; there are no partial fills.
// Implementations must be safe for concurrent use by several monitors.
type OrderExecutor interface {
	Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (signature string, err error)
}

// AlertSink receives trigger events. Delivery is best effort.
type AlertSink interface {
	Raise(ctx context.Context, alert Alert) error
}

// Clock abstracts time so tests can run many cycles without waiting.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

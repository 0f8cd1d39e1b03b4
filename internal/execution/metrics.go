// internal/execution/metrics.go
package execution

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Instrumented records count and duration of every sell attempt.
type Instrumented struct {
	next     Seller
	venue    string
	count    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewInstrumented registers the sell collectors on reg. venue is "jupiter" or "paper".
func NewInstrumented(next Seller, venue string, reg prometheus.Registerer) *Instrumented {
	i := &Instrumented{
		next:  next,
		venue: venue,
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "moonbag",
				Name:      "transactions_total",
				Help:      "Sell transactions by status and venue",
			},
			[]string{"status", "venue"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "moonbag",
				Name:      "transaction_duration_seconds",
				Help:      "Sell duration from quote to confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"venue"},
		),
	}
	if reg != nil {
		reg.MustRegister(i.count, i.duration)
	}
	return i
}

func (i *Instrumented) Sell(ctx context.Context, tokenMint string, quantity decimal.Decimal) (string, error) {
	start := time.Now()
	sig, err := i.next.Sell(ctx, tokenMint, quantity)
	i.duration.WithLabelValues(i.venue).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "failed"
	}
	i.count.WithLabelValues(status, i.venue).Inc()
	return sig, err
}

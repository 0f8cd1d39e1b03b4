package execution

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestInstrumented_CountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewInstrumented(NewPaperSeller(nil, zaptest.NewLogger(t)), "paper", reg)

	_, err := s.Sell(context.Background(), testMint, decimal.NewFromInt(1))
	assert.NoError(t, err)
	_, err = s.Sell(context.Background(), testMint, decimal.Zero)
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.count.WithLabelValues("success", "paper")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.count.WithLabelValues("failed", "paper")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.duration))
}

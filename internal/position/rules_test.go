package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// step applies a decision the way the monitor does when every sell succeeds.
func step(t *testing.T, p *Position, price decimal.Decimal, r Rules) Decision {
	t.Helper()
	dec := Evaluate(*p, price, r)
	switch dec.Action {
	case ActionTakeProfit:
		require.NoError(t, p.ApplyTakeProfit(price, dec.Quantity))
	case ActionTrailingStop:
		p.ApplyPeak(price)
		require.NoError(t, p.ApplyTrailingStop())
	default:
		p.ApplyPeak(price)
	}
	return dec
}

func TestGainRatio(t *testing.T) {
	assert.True(t, GainRatio(d("1"), d("2")).Equal(d("2")))
	assert.True(t, GainRatio(d("0"), d("5")).IsZero())
	assert.True(t, GainRatio(d("-1"), d("5")).IsZero())
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.TakeProfitMultiple = d("1")
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.PartialExitFraction = d("0")
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.PartialExitFraction = d("1")
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.PartialExitFraction = d("0.99")
	assert.NoError(t, r.Validate())

	r = DefaultRules()
	r.TrailingStopRatio = d("1")
	assert.Error(t, r.Validate())
}

func TestEvaluate_TakeProfitAtDouble(t *testing.T) {
	p := New("mint", d("1.0"), d("1000"))
	r := DefaultRules()

	for _, price := range []string{"1.0", "1.5"} {
		dec := step(t, &p, d(price), r)
		assert.Equal(t, ActionNone, dec.Action)
		assert.Equal(t, StatusOpen, p.Status)
		assert.True(t, p.PeakPrice.Equal(d("1.0")), "peak must not move before take-profit")
	}

	dec := step(t, &p, d("2.0"), r)
	assert.Equal(t, ActionTakeProfit, dec.Action)
	assert.True(t, dec.Quantity.Equal(d("500")))
	assert.True(t, p.RemainingQuantity.Equal(d("500")))
	assert.Equal(t, StatusPartiallyExited, p.Status)
	assert.True(t, p.PeakPrice.Equal(d("2.0")))
	assert.True(t, p.TakeProfitTriggered)
}

func TestEvaluate_TrailingStopBelowRatio(t *testing.T) {
	p := New("mint", d("1.0"), d("1000"))
	r := DefaultRules()
	step(t, &p, d("2.0"), r)

	step(t, &p, d("2.5"), r)
	step(t, &p, d("3.0"), r)
	assert.True(t, p.PeakPrice.Equal(d("3.0")))
	assert.Equal(t, StatusPartiallyExited, p.Status)

	dec := step(t, &p, d("2.0"), r)
	assert.Equal(t, ActionTrailingStop, dec.Action)
	assert.True(t, dec.Quantity.Equal(d("500")))
	assert.True(t, dec.StopPrice.Equal(d("2.1")))
	assert.True(t, p.RemainingQuantity.IsZero())
	assert.Equal(t, StatusClosed, p.Status)
}

func TestEvaluate_PeakTracksPostTriggerHigh(t *testing.T) {
	p := New("mint", d("1.0"), d("1000"))
	r := DefaultRules()
	step(t, &p, d("2.0"), r)

	for i := 0; i < 2; i++ {
		dec := step(t, &p, d("2.1"), r)
		assert.Equal(t, ActionNone, dec.Action)
	}
	assert.Equal(t, StatusPartiallyExited, p.Status)
	assert.True(t, p.PeakPrice.Equal(d("2.1")))
	assert.True(t, p.RemainingQuantity.Equal(d("500")))
}

func TestEvaluate_TrailingStopBoundaryIsStrict(t *testing.T) {
	p := New("mint", d("1.0"), d("1000"))
	r := DefaultRules()
	step(t, &p, d("3.0"), r)
	require.True(t, p.PeakPrice.Equal(d("3.0")))

	dec := Evaluate(p, d("2.1"), r)
	assert.Equal(t, ActionNone, dec.Action, "price == peak*ratio must not trigger")

	dec = Evaluate(p, d("2.0999"), r)
	assert.Equal(t, ActionTrailingStop, dec.Action)
}

func TestEvaluate_TakeProfitFiresOnce(t *testing.T) {
	p := New("mint", d("1.0"), d("1000"))
	r := DefaultRules()
	step(t, &p, d("2.0"), r)

	for _, price := range []string{"5", "10", "20", "40"} {
		dec := step(t, &p, d(price), r)
		assert.NotEqual(t, ActionTakeProfit, dec.Action)
	}
	assert.True(t, p.RemainingQuantity.Equal(d("500")))
	assert.Error(t, p.ApplyTakeProfit(d("40"), d("1")))
}

func TestEvaluate_NonPositiveEntryNeverTakesProfit(t *testing.T) {
	for _, entry := range []string{"0", "-1"} {
		p := New("mint", d(entry), d("1000"))
		for _, price := range []string{"0.1", "1", "100", "1000000"} {
			dec := step(t, &p, d(price), DefaultRules())
			assert.Equal(t, ActionNone, dec.Action)
		}
		assert.False(t, p.TakeProfitTriggered)
		assert.True(t, p.RemainingQuantity.Equal(d("1000")))
	}
}

func TestEvaluate_RemainingNeverIncreasesAndPeakNeverDecreases(t *testing.T) {
	p := New("mint", d("0.5"), d("1000"))
	r := DefaultRules()
	prices := []string{"0.4", "0.6", "1.0", "1.2", "0.9", "1.5", "1.4", "1.3", "1.1", "1.04", "2"}

	prevRemaining := p.RemainingQuantity
	prevPeak := p.PeakPrice
	for _, price := range prices {
		step(t, &p, d(price), r)
		assert.True(t, p.RemainingQuantity.LessThanOrEqual(prevRemaining))
		if p.TakeProfitTriggered {
			assert.True(t, p.PeakPrice.GreaterThanOrEqual(prevPeak))
		}
		prevRemaining = p.RemainingQuantity
		prevPeak = p.PeakPrice
		if p.IsClosed() {
			break
		}
	}
	assert.Equal(t, StatusClosed, p.Status)
}

func TestEvaluate_ClosedPositionDoesNothing(t *testing.T) {
	p := New("mint", d("1"), d("10"))
	p.Status = StatusClosed
	dec := Evaluate(p, d("100"), DefaultRules())
	assert.Equal(t, ActionNone, dec.Action)
}

func TestApplyTakeProfit_MustLeaveMoonbag(t *testing.T) {
	p := New("mint", d("1"), d("10"))

	err := p.ApplyTakeProfit(d("2"), d("10"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, StatusOpen, p.Status)
	assert.False(t, p.TakeProfitTriggered)
	assert.True(t, p.RemainingQuantity.Equal(d("10")))

	require.NoError(t, p.ApplyTakeProfit(d("2"), d("9.99")))
	assert.Equal(t, StatusPartiallyExited, p.Status)
	assert.True(t, p.ClosedAt.IsZero())
}

func TestPositionValidate(t *testing.T) {
	require.NoError(t, New("mint", d("1"), d("10")).Validate())

	tests := []struct {
		name   string
		mutate func(*Position)
	}{
		{"open with partial remainder", func(p *Position) { p.RemainingQuantity = d("5") }},
		{"open with nothing left", func(p *Position) { p.RemainingQuantity = decimal.Zero }},
		{"open with take-profit flag", func(p *Position) { p.TakeProfitTriggered = true }},
		{"partially exited without flag", func(p *Position) {
			p.Status = StatusPartiallyExited
			p.RemainingQuantity = d("5")
		}},
		{"partially exited with nothing left", func(p *Position) {
			p.Status = StatusPartiallyExited
			p.TakeProfitTriggered = true
			p.RemainingQuantity = decimal.Zero
		}},
		{"unknown status", func(p *Position) { p.Status = "SOLD" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("mint", d("1"), d("10"))
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}

	p := New("mint", d("1"), d("10"))
	require.NoError(t, p.ApplyTakeProfit(d("2"), d("5")))
	assert.NoError(t, p.Validate())
	require.NoError(t, p.ApplyTrailingStop())
	assert.NoError(t, p.Validate())
}

func TestStatusTransitions(t *testing.T) {
	p := New("mint", d("1"), d("10"))
	err := p.ApplyTrailingStop()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusOpen, p.Status)

	err = p.ApplyTakeProfit(d("2"), d("20"))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.True(t, p.RemainingQuantity.Equal(d("10")))
}

func TestPnLPercent(t *testing.T) {
	p := New("mint", d("2"), d("10"))
	assert.True(t, p.PnLPercent(d("3")).Equal(d("50")))
	p.EntryPrice = decimal.Zero
	assert.True(t, p.PnLPercent(d("3")).IsZero())
}

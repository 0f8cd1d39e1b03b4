// =============================================
// File: internal/position/rules.go
// =============================================
package position

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Default exit thresholds.
var (
	DefaultTakeProfitMultiple  = decimal.NewFromFloat(2.0) // 100% gain
	DefaultPartialExitFraction = decimal.NewFromFloat(0.5)
	DefaultTrailingStopRatio   = decimal.NewFromFloat(0.7) // 30% pullback from peak
)

// Rules holds the exit thresholds applied every polling cycle.
type Rules struct {
	TakeProfitMultiple  decimal.Decimal // gain ratio that fires the partial exit
	PartialExitFraction decimal.Decimal // share of the initial quantity sold at take-profit
	TrailingStopRatio   decimal.Decimal // sell the rest when price < peak * ratio
}

// DefaultRules returns the thresholds the bot ships with.
func DefaultRules() Rules {
	return Rules{
		TakeProfitMultiple:  DefaultTakeProfitMultiple,
		PartialExitFraction: DefaultPartialExitFraction,
		TrailingStopRatio:   DefaultTrailingStopRatio,
	}
}

// Validate rejects thresholds that would make the state machine meaningless.
func (r Rules) Validate() error {
	one := decimal.NewFromInt(1)
	if !r.TakeProfitMultiple.GreaterThan(one) {
		return fmt.Errorf("take-profit multiple must be > 1, got %s", r.TakeProfitMultiple)
	}
	// Take-profit must leave a moonbag, otherwise the position would skip PARTIALLY_EXITED.
	if !r.PartialExitFraction.IsPositive() || !r.PartialExitFraction.LessThan(one) {
		return fmt.Errorf("partial exit fraction must be in (0, 1), got %s", r.PartialExitFraction)
	}
	if !r.TrailingStopRatio.IsPositive() || !r.TrailingStopRatio.LessThan(one) {
		return fmt.Errorf("trailing stop ratio must be in (0, 1), got %s", r.TrailingStopRatio)
	}
	return nil
}

// Action is what a cycle decided to do.
type Action int

const (
	ActionNone Action = iota
	ActionTakeProfit
	ActionTrailingStop
)

func (a Action) String() string {
	switch a {
	case ActionTakeProfit:
		return "take_profit"
	case ActionTrailingStop:
		return "trailing_stop"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating one price against a position.
type Decision struct {
	Action    Action
	Quantity  decimal.Decimal // tokens to sell, zero for ActionNone
	Peak      decimal.Decimal // peak the position carries after this cycle
	GainRatio decimal.Decimal
	StopPrice decimal.Decimal // peak * ratio, zero before take-profit
}

// GainRatio returns price/entry, or zero when entry is not positive.
func GainRatio(entry, price decimal.Decimal) decimal.Decimal {
	if !entry.IsPositive() {
		return decimal.Zero
	}
	return price.Div(entry)
}

// Evaluate decides the action for one cycle. It does not mutate p.
//
// Take-profit is checked while it has not fired yet; the trailing stop only once it has.
// The peak is raised every post-take-profit cycle whether or not a sell follows.
func Evaluate(p Position, price decimal.Decimal, r Rules) Decision {
	d := Decision{
		Action:    ActionNone,
		Quantity:  decimal.Zero,
		Peak:      p.PeakPrice,
		GainRatio: GainRatio(p.EntryPrice, price),
		StopPrice: decimal.Zero,
	}

	if p.IsClosed() {
		return d
	}

	if !p.TakeProfitTriggered {
		if d.GainRatio.IsPositive() && d.GainRatio.GreaterThanOrEqual(r.TakeProfitMultiple) {
			d.Action = ActionTakeProfit
			d.Quantity = p.InitialQuantity.Mul(r.PartialExitFraction)
			if d.Quantity.GreaterThan(p.RemainingQuantity) {
				d.Quantity = p.RemainingQuantity
			}
		}
		return d
	}

	d.Peak = decimal.Max(p.PeakPrice, price)
	d.StopPrice = d.Peak.Mul(r.TrailingStopRatio)
	if price.LessThan(d.StopPrice) {
		d.Action = ActionTrailingStop
		d.Quantity = p.RemainingQuantity
	}
	return d
}

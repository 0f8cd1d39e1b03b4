// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/events"
	"github.com/rovshanmuradov/moonbag/internal/position"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultCycleTimeout = 90 * time.Second
)

// Config wires a Monitor to its collaborators. Oracle and Executor are required.
type Config struct {
	Oracle       PriceOracle
	Executor     OrderExecutor
	Alerts       AlertSink        // optional
	Events       events.Publisher // optional
	Clock        Clock            // defaults to the wall clock
	Metrics      *Metrics         // optional
	Logger       *zap.Logger
	Rules        position.Rules
	PollInterval time.Duration // pause between cycles
	CycleTimeout time.Duration // bound on the collaborator calls of one cycle

	// OnCycle is called with the snapshot at the end of every cycle.
	OnCycle func(position.Position)
}

// Monitor drives one position from entry to full exit.
// A Monitor holds no per-position state and may run several positions concurrently.
type Monitor struct {
	cfg    Config
	logger *zap.Logger
}

// New validates the config and applies defaults.
func New(cfg Config) (*Monitor, error) {
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("price oracle cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("order executor cannot be nil")
	}
	if cfg.Rules == (position.Rules{}) {
		cfg.Rules = position.DefaultRules()
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid exit rules: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}

	return &Monitor{cfg: cfg, logger: cfg.Logger}, nil
}

// withObserver returns a copy of m that also reports snapshots to fn.
func (m *Monitor) withObserver(fn func(position.Position)) *Monitor {
	cp := *m
	prev := cp.cfg.OnCycle
	cp.cfg.OnCycle = func(p position.Position) {
		if prev != nil {
			prev(p)
		}
		fn(p)
	}
	return &cp
}

// Rules returns the exit thresholds in use.
func (m *Monitor) Rules() position.Rules { return m.cfg.Rules }

// Run monitors pos until it is CLOSED and returns the final snapshot.
// Cancelling ctx stops the loop between cycles; the snapshot is returned with ctx.Err().
func (m *Monitor) Run(ctx context.Context, pos position.Position) (position.Position, error) {
	if err := pos.Validate(); err != nil {
		return pos, fmt.Errorf("invalid position: %w", err)
	}
	if pos.Status != position.StatusOpen {
		return pos, fmt.Errorf("%w: %s", ErrPositionNotOpen, pos.Status)
	}

	log := m.logger.With(zap.String("token", pos.AssetID))
	log.Info(fmt.Sprintf("🚀 Monitor started: %s tokens of %s @ %s SOL",
		pos.RemainingQuantity, pos.Name(), pos.EntryPrice),
		zap.Duration("interval", m.cfg.PollInterval))

	m.cfg.Metrics.positionOpened()
	defer m.cfg.Metrics.positionDone()

	m.publish(&events.MonitoringStartedEvent{
		BaseEvent:  events.NewBase(events.MonitoringStarted),
		TokenMint:  pos.AssetID,
		Label:      pos.Label,
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.InitialQuantity,
	})

	for {
		if err := ctx.Err(); err != nil {
			return m.stopped(log, pos, err)
		}

		m.cycle(ctx, log, &pos)

		if pos.IsClosed() {
			log.Info("✅ Position closed", zap.String("label", pos.Label))
			m.publish(&events.MonitoringStoppedEvent{
				BaseEvent: events.NewBase(events.MonitoringStopped),
				TokenMint: pos.AssetID,
				Reason:    "closed",
				Remaining: pos.RemainingQuantity,
			})
			return pos, nil
		}

		select {
		case <-ctx.Done():
			return m.stopped(log, pos, ctx.Err())
		case <-m.cfg.Clock.After(m.cfg.PollInterval):
		}
	}
}

func (m *Monitor) stopped(log *zap.Logger, pos position.Position, err error) (position.Position, error) {
	log.Info("🛑 Monitoring stopped before exit",
		zap.String("status", string(pos.Status)),
		zap.String("remaining", pos.RemainingQuantity.String()))
	m.publish(&events.MonitoringStoppedEvent{
		BaseEvent: events.NewBase(events.MonitoringStopped),
		TokenMint: pos.AssetID,
		Reason:    "cancelled",
		Remaining: pos.RemainingQuantity,
	})
	return pos, err
}

// cycle runs one price check and rule evaluation. Calls made here ignore cancellation of ctx
// so a sell and its state update are never split; they are bounded by CycleTimeout instead.
func (m *Monitor) cycle(parent context.Context, log *zap.Logger, pos *position.Position) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), m.cfg.CycleTimeout)
	defer cancel()

	price, err := m.fetchPrice(ctx, pos.AssetID)
	if err != nil {
		log.Warn("Price unavailable, skipping cycle", zap.Error(err))
		m.cfg.Metrics.priceMiss()
		m.cfg.Metrics.cycle("skipped")
		m.publish(&events.PriceUnavailableEvent{
			BaseEvent: events.NewBase(events.PriceUnavailable),
			TokenMint: pos.AssetID,
			Error:     err,
		})
		return
	}

	decision := position.Evaluate(*pos, price, m.cfg.Rules)
	log.Debug("Cycle evaluated",
		zap.String("price", price.String()),
		zap.String("gain_ratio", decision.GainRatio.StringFixed(4)),
		zap.String("peak", decision.Peak.String()),
		zap.String("action", decision.Action.String()))

	switch decision.Action {
	case position.ActionTakeProfit:
		m.takeProfit(ctx, log, pos, price, decision)
	case position.ActionTrailingStop:
		pos.ApplyPeak(price)
		m.trailingStop(ctx, log, pos, price, decision)
	default:
		pos.ApplyPeak(price)
	}

	m.cfg.Metrics.cycle("evaluated")
	m.publish(&events.PositionUpdatedEvent{
		BaseEvent:    events.NewBase(events.PositionUpdated),
		TokenMint:    pos.AssetID,
		Status:       string(pos.Status),
		CurrentPrice: price,
		EntryPrice:   pos.EntryPrice,
		PeakPrice:    pos.PeakPrice,
		PnLPercent:   pos.PnLPercent(price),
		Remaining:    pos.RemainingQuantity,
	})
	if m.cfg.OnCycle != nil {
		m.cfg.OnCycle(*pos)
	}
}

func (m *Monitor) takeProfit(ctx context.Context, log *zap.Logger, pos *position.Position, price decimal.Decimal, d position.Decision) {
	rule := d.Action.String()
	sig, err := m.sell(ctx, pos.AssetID, d.Quantity)
	if err != nil {
		m.sellFailed(ctx, log, pos, rule, price, d.Quantity, err)
		return
	}

	if err := pos.ApplyTakeProfit(price, d.Quantity); err != nil {
		// Evaluate only proposes legal moves; reaching this is a bug worth a loud log.
		log.Error("Take-profit state update rejected", zap.Error(err))
		return
	}
	m.cfg.Metrics.sell(rule, true)

	log.Info(fmt.Sprintf("💰 Take-profit: sold %s at %s SOL (x%s), moonbag %s left",
		d.Quantity, price, d.GainRatio.StringFixed(2), pos.RemainingQuantity),
		zap.String("signature", sig))

	m.exited(ctx, log, events.TakeProfitFired, AlertTakeProfit, pos, rule, price, d.Quantity, sig)
}

func (m *Monitor) trailingStop(ctx context.Context, log *zap.Logger, pos *position.Position, price decimal.Decimal, d position.Decision) {
	rule := d.Action.String()
	sig, err := m.sell(ctx, pos.AssetID, d.Quantity)
	if err != nil {
		m.sellFailed(ctx, log, pos, rule, price, d.Quantity, err)
		return
	}

	if err := pos.ApplyTrailingStop(); err != nil {
		log.Error("Trailing-stop state update rejected", zap.Error(err))
		return
	}
	m.cfg.Metrics.sell(rule, true)

	log.Info(fmt.Sprintf("📉 Trailing stop: sold %s at %s SOL (peak %s, stop %s)",
		d.Quantity, price, pos.PeakPrice, d.StopPrice),
		zap.String("signature", sig))

	m.exited(ctx, log, events.TrailingStopFired, AlertTrailingStop, pos, rule, price, d.Quantity, sig)
}

func (m *Monitor) exited(ctx context.Context, log *zap.Logger, et events.EventType, at AlertType,
	pos *position.Position, rule string, price, qty decimal.Decimal, sig string) {
	m.publish(&events.ExitEvent{
		BaseEvent:  events.NewBase(et),
		TokenMint:  pos.AssetID,
		Label:      pos.Label,
		Rule:       rule,
		Quantity:   qty,
		Price:      price,
		EntryPrice: pos.EntryPrice,
		PeakPrice:  pos.PeakPrice,
		Signature:  sig,
	})
	m.alert(ctx, log, newExitAlert(at, *pos, price, qty, sig))
}

func (m *Monitor) sellFailed(ctx context.Context, log *zap.Logger, pos *position.Position,
	rule string, price, qty decimal.Decimal, err error) {
	m.cfg.Metrics.sell(rule, false)
	log.Warn("❌ Sell failed, will retry next cycle",
		zap.String("rule", rule),
		zap.String("quantity", qty.String()),
		zap.String("price", price.String()),
		zap.Error(err))

	m.publish(&events.ExitEvent{
		BaseEvent:  events.NewBase(events.SellFailed),
		TokenMint:  pos.AssetID,
		Label:      pos.Label,
		Rule:       rule,
		Quantity:   qty,
		Price:      price,
		EntryPrice: pos.EntryPrice,
		PeakPrice:  pos.PeakPrice,
		Error:      err,
	})
	m.alert(ctx, log, newSellFailedAlert(*pos, rule, price, qty, err))
}

// fetchPrice never panics and never returns a negative price without an error.
// Zero is a valid price: a drained pool must still reach the trailing stop.
func (m *Monitor) fetchPrice(ctx context.Context, mint string) (price decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			price, err = decimal.Zero, recovered(ErrPriceUnavailable, r)
		}
	}()

	price, err = m.cfg.Oracle.Price(ctx, mint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price %s", ErrPriceUnavailable, price)
	}
	return price, nil
}

// sell never panics; every failure is reported as ErrSellRejected.
func (m *Monitor) sell(ctx context.Context, mint string, qty decimal.Decimal) (sig string, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = "", recovered(ErrSellRejected, r)
		}
	}()

	sig, err = m.cfg.Executor.Sell(ctx, mint, qty)
	if err != nil {
		if errors.Is(err, ErrSellRejected) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrSellRejected, err)
	}
	return sig, nil
}

// alert delivers best effort; failures are logged and swallowed.
func (m *Monitor) alert(ctx context.Context, log *zap.Logger, a Alert) {
	if m.cfg.Alerts == nil {
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(ErrNotificationFailed, r)
			}
		}()
		return m.cfg.Alerts.Raise(ctx, a)
	}()
	if err != nil && !errors.Is(err, ErrAlertSuppressed) {
		m.cfg.Metrics.notifyFailure()
		log.Debug("Alert delivery failed",
			zap.String("type", string(a.Type)),
			zap.Error(fmt.Errorf("%w: %w", ErrNotificationFailed, err)))
	}
}

func (m *Monitor) publish(e events.Event) {
	if m.cfg.Events == nil {
		return
	}
	if err := m.cfg.Events.Publish(e); err != nil {
		m.logger.Debug("Event not published",
			zap.String("event_type", string(e.Type())),
			zap.Error(err))
	}
}

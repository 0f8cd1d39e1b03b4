package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/moonbag/internal/events"
	"github.com/rovshanmuradov/moonbag/internal/position"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// instantClock never waits.
type instantClock struct{ now time.Time }

func (c instantClock) Now() time.Time { return c.now }
func (c instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// recordingClock never waits but records every requested wait and how many
// prices had been fetched when it was requested.
type recordingClock struct {
	mu          sync.Mutex
	now         time.Time
	oracle      *scriptedOracle
	waits       []time.Duration
	callsAtWait []int
}

func (c *recordingClock) Now() time.Time { return c.now }

func (c *recordingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.callsAtWait = append(c.callsAtWait, c.oracle.callCount())
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *recordingClock) recorded() ([]time.Duration, []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...), append([]int(nil), c.callsAtWait...)
}

var errNoQuote = errors.New("no quote")

// quote is one scripted oracle answer: a price, an error or a panic.
type quote struct {
	price string
	err   error
	panic bool
}

// scriptedOracle replays quotes and cancels the run when it runs out.
type scriptedOracle struct {
	mu     sync.Mutex
	quotes []quote
	calls  int
	cancel context.CancelFunc
}

func prices(ps ...string) []quote {
	q := make([]quote, len(ps))
	for i, p := range ps {
		q[i] = quote{price: p}
	}
	return q
}

func (o *scriptedOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func (o *scriptedOracle) Price(_ context.Context, _ string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := o.calls
	o.calls++
	if i >= len(o.quotes) {
		if o.cancel != nil {
			o.cancel()
		}
		return decimal.Zero, errNoQuote
	}
	q := o.quotes[i]
	switch {
	case q.panic:
		panic("oracle exploded")
	case q.err != nil:
		return decimal.Zero, q.err
	}
	return d(q.price), nil
}

// recordingExecutor fails the calls listed in failOn (0-based) and records every attempt.
type recordingExecutor struct {
	mu       sync.Mutex
	failOn   map[int]error
	panicOn  map[int]bool
	attempts []decimal.Decimal
	ctxErrs  []error
	onSell   func()
}

func (e *recordingExecutor) Sell(ctx context.Context, _ string, qty decimal.Decimal) (string, error) {
	if e.onSell != nil {
		e.onSell()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := len(e.attempts)
	e.attempts = append(e.attempts, qty)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
	if e.panicOn[i] {
		panic("executor exploded")
	}
	if err := e.failOn[i]; err != nil {
		return "", err
	}
	return "sig" + qty.String(), nil
}

func (e *recordingExecutor) sold() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.attempts))
	for i, q := range e.attempts {
		out[i] = q.String()
	}
	return out
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (a *recordingAlerts) Raise(_ context.Context, alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return a.err
}

func (a *recordingAlerts) types() []AlertType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AlertType, len(a.alerts))
	for i, al := range a.alerts {
		out[i] = al.Type
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type()
	}
	return out
}

func (p *recordingPublisher) count(t events.EventType) int {
	n := 0
	for _, et := range p.types() {
		if et == t {
			n++
		}
	}
	return n
}

func openPosition() position.Position {
	return position.New("MintAAAAbbbbCCCCddddEEEEffff1111", d("1.0"), d("1000"))
}

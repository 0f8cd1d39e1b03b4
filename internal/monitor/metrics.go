// internal/monitor/metrics.go
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the exit manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles           *prometheus.CounterVec
	sells            *prometheus.CounterVec
	openPositions    prometheus.Gauge
	priceUnavailable prometheus.Counter
	notifyFailures   prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moonbag_cycles_total",
				Help: "Polling cycles by outcome",
			},
			[]string{"result"}, // evaluated|skipped
		),
		sells: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moonbag_sells_total",
				Help: "Exit sell attempts by rule and status",
			},
			[]string{"rule", "status"}, // status: success|failed
		),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moonbag_open_positions",
			Help: "Positions currently under monitoring",
		}),
		priceUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonbag_price_unavailable_total",
			Help: "Cycles skipped because no price was available",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonbag_notification_failures_total",
			Help: "Alerts that could not be delivered",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.cycles, m.sells, m.openPositions, m.priceUnavailable, m.notifyFailures)
	}
	return m
}

func (m *Metrics) cycle(result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
}

func (m *Metrics) sell(rule string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.sells.WithLabelValues(rule, status).Inc()
}

func (m *Metrics) priceMiss() {
	if m == nil {
		return
	}
	m.priceUnavailable.Inc()
}

func (m *Metrics) notifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) positionOpened() {
	if m == nil {
		return
	}
	m.openPositions.Inc()
}

func (m *Metrics) positionDone() {
	if m == nil {
		return
	}
	m.openPositions.Dec()
}

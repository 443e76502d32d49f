package call

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded by Metrics.
const (
	OutcomeResponse  = "response"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the Prometheus collectors updated by a Bridge.
// A nil *Metrics records nothing.
type Metrics struct {
	Calls          *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	LateDeliveries prometheus.Counter
}

// NewMetrics registers the bridge collectors with reg. Collectors already
// registered by an earlier call on the same registry are reused, so several
// bridges can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	calls, err := register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpstack_calls_total",
			Help: "Total number of awaited HTTP calls by outcome",
		},
		[]string{"method", "outcome"},
	))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpstack_call_duration_seconds",
			Help:    "Time from enqueue to resolution of an awaited HTTP call",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	))
	if err != nil {
		return nil, err
	}

	late, err := register(reg, prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "httpstack_late_deliveries_total",
			Help: "Outcomes delivered after their call was already resolved or cancelled",
		},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{Calls: calls, Duration: duration, LateDeliveries: late}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	if are, ok := errors.AsType[prometheus.AlreadyRegisteredError](err); ok {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	var zero C
	return zero, fmt.Errorf("registering metrics: %w", err)
}

func (m *Metrics) observe(method, outcome string, since time.Time) {
	if m == nil {
		return
	}

	m.Calls.WithLabelValues(method, outcome).Inc()
	m.Duration.WithLabelValues(method).Observe(time.Since(since).Seconds())
}

func (m *Metrics) late() {
	if m == nil {
		return
	}

	m.LateDeliveries.Inc()
}

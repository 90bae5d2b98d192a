package observer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/startstop/pkg/lifecycle"
)

const metricsNamespace = "startstop"

var allStates = []lifecycle.State{
	lifecycle.StateStopped,
	lifecycle.StateStarting,
	lifecycle.StateStarted,
	lifecycle.StateStopping,
	lifecycle.StateError,
}

// Metrics exports state changes as Prometheus metrics:
//
//	startstop_service_state{service,state}                 1 for the current state, 0 otherwise
//	startstop_transitions_total{service,from,to}           transitions observed
//	startstop_operation_duration_seconds{service,operation,result}
//
// Series are labeled with the service name. Each Service subscribes its own
// observer from Observer, so operation timings are tracked per subscription
// even when two services share a name.
type Metrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "service",
			Name:      "state",
			Help:      "Current lifecycle state of the service (1 for the current state).",
		}, []string{"service", "state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transitions_total",
			Help:      "Lifecycle state transitions.",
		}, []string{"service", "from", "to"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of start and stop operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"service", "operation", "result"}),
	}

	for _, c := range []prometheus.Collector{m.state, m.transitions, m.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observer returns an observer feeding m for a single Service.
func (m *Metrics) Observer() lifecycle.Observer {
	return &serviceMetrics{m: m}
}

// serviceMetrics measures operation durations from the Starting or
// Stopping event to the event that ends the crossing.
type serviceMetrics struct {
	m *Metrics

	mu    sync.Mutex
	began time.Time
}

func (o *serviceMetrics) OnStateChange(e lifecycle.StateChangeEvent) {
	m := o.m
	cur := e.Current.State
	for _, s := range allStates {
		v := 0.0
		if s == cur {
			v = 1
		}
		m.state.WithLabelValues(e.Service, s.String()).Set(v)
	}
	m.transitions.WithLabelValues(e.Service, e.Previous.State.String(), cur.String()).Inc()

	o.mu.Lock()
	defer o.mu.Unlock()

	if cur.Transitional() {
		o.began = e.At
		return
	}
	if o.began.IsZero() {
		return
	}
	began := o.began
	o.began = time.Time{}

	operation := "start"
	if e.Previous.State == lifecycle.StateStopping {
		operation = "stop"
	}
	result := "ok"
	if cur == lifecycle.StateError {
		result = "error"
	}
	m.durations.WithLabelValues(e.Service, operation, result).Observe(e.At.Sub(began).Seconds())
}

// Package metrics exposes driver lifecycle and mock traffic as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/localdriver/pkg/lifecycle"
)

var states = []lifecycle.State{
	lifecycle.StateStopped,
	lifecycle.StateStarting,
	lifecycle.StateRunning,
	lifecycle.StateStopping,
	lifecycle.StateCrashed,
}

// Metrics provides Prometheus metrics for a driver.
//
// All metrics use the localdriver_ prefix. Methods are safe to call on a
// nil receiver so metrics can be switched off without branching.
type Metrics struct {
	// State is 1 for the current lifecycle state and 0 for the others.
	State *prometheus.GaugeVec

	// Transitions counts state changes by source and target state.
	Transitions *prometheus.CounterVec

	// TTSExpirations counts drivers stopped by their TTS timer.
	TTSExpirations prometheus.Counter

	// Requests counts mock requests by method, route and status.
	Requests *prometheus.CounterVec
}

// NewMetrics creates and registers driver metrics. Pass a nil registerer to
// create unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		State: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "localdriver_state",
				Help: "Current driver lifecycle state (1 for the active state)",
			},
			[]string{"state"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localdriver_state_transitions_total",
				Help: "Total driver state transitions by source and target state",
			},
			[]string{"from", "to"},
		),
		TTSExpirations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "localdriver_tts_expirations_total",
				Help: "Total drivers stopped because their time-to-stop window elapsed",
			},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "localdriver_mock_requests_total",
				Help: "Total mock requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	for _, s := range states {
		m.State.WithLabelValues(s.String()).Set(0)
	}
	m.State.WithLabelValues(lifecycle.StateStopped.String()).Set(1)

	if reg != nil {
		reg.MustRegister(m.State, m.Transitions, m.TTSExpirations, m.Requests)
	}
	return m
}

// OnStateChange implements lifecycle.EventEmitter.
func (m *Metrics) OnStateChange(previous, current lifecycle.State, _ string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(previous.String(), current.String()).Inc()
	m.State.WithLabelValues(previous.String()).Set(0)
	m.State.WithLabelValues(current.String()).Set(1)
}

// RecordExpiry counts a TTS expiry.
func (m *Metrics) RecordExpiry() {
	if m == nil {
		return
	}
	m.TTSExpirations.Inc()
}

// RecordRequest counts a completed mock request.
func (m *Metrics) RecordRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

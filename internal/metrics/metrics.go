// Package metrics exposes session activity as Prometheus metrics. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/model"
)

// Result labels.
const (
	ResultOK      = "ok"
	ResultPartial = "partial"
	ResultInvalid = "invalid"
	ResultBusy    = "busy"
	ResultStale   = "stale"
	ResultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	mutations      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	scriptFailures prometheus.Counter
	openSessions   prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eddy",
			Name:      "mutations_total",
			Help:      "History mutations by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eddy",
			Name:      "mutation_duration_seconds",
			Help:      "Time to apply a mutation to the page, scripts and save included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"op"}),
		scriptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eddy",
			Name:      "script_failures_total",
			Help:      "Scripts the bridge reported as failed.",
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eddy",
			Name:      "open_sessions",
			Help:      "Sessions with a live engine.",
		}),
	}
	m.registry.MustRegister(m.mutations, m.duration, m.scriptFailures, m.openSessions)
	return m
}

// Observe records one mutation that started at start.
func (m *Metrics) Observe(op string, start time.Time, out engine.Outcome, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, Result(out, err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if n := len(out.ScriptFailures); n > 0 {
		m.scriptFailures.Add(float64(n))
	}
}

// SessionOpened and SessionClosed track the open-session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.openSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.openSessions.Dec()
	}
}

// Result classifies a mutation for the result label.
func Result(out engine.Outcome, err error) string {
	switch {
	case err == nil:
		return ResultOK
	case out.Changed && (errors.Is(err, bridge.ErrScriptFailed) || errors.Is(err, engine.ErrPersist)):
		return ResultPartial
	case errors.Is(err, model.ErrInvalidModification), errors.Is(err, model.ErrInvalidHistory):
		return ResultInvalid
	case errors.Is(err, engine.ErrBusy):
		return ResultBusy
	case errors.Is(err, engine.ErrStaleApply):
		return ResultStale
	}
	return ResultError
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mostly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

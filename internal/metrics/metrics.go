package metrics

import (
	"net/http"
	"time"

	"github.com/nholik/goact-stack/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var viewStates = []health.Kind{health.KindLoading, health.KindReady, health.KindFailed}

// Metrics wraps Prometheus collectors for the health monitor.
type Metrics struct {
	registry             *prometheus.Registry
	checksTotal          *prometheus.CounterVec
	checkDurationSeconds prometheus.Histogram
	viewState            *prometheus.GaugeVec
	lastSuccessGauge     prometheus.Gauge
	notificationsTotal   *prometheus.CounterVec
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goact_health_checks_total",
			Help: "Completed health checks by outcome.",
		}, []string{"outcome"}),
		checkDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goact_health_check_duration_seconds",
			Help:    "Duration of health checks in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		viewState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goact_health_view_state",
			Help: "Current view state of the health monitor (1 for the active state).",
		}, []string{"state"}),
		lastSuccessGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goact_health_last_success_timestamp",
			Help: "Unix timestamp of the last successful health check.",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goact_notifications_total",
			Help: "Transition notifications by channel and result.",
		}, []string{"channel", "result"}),
	}

	registry.MustRegister(
		m.checksTotal,
		m.checkDurationSeconds,
		m.viewState,
		m.lastSuccessGauge,
		m.notificationsTotal,
	)
	m.SetViewState(health.KindLoading)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCheck records a completed check. The view state gauge follows
// published state changes through ObserveViewState.
func (m *Metrics) ObserveCheck(outcome health.Outcome, duration time.Duration, state health.ViewState) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(string(outcome)).Inc()
	m.checkDurationSeconds.Observe(duration.Seconds())
	if outcome == health.OutcomeOK {
		checkedAt := state.CheckedAt
		if checkedAt.IsZero() {
			checkedAt = time.Now()
		}
		m.lastSuccessGauge.Set(float64(checkedAt.Unix()))
	}
}

// ObserveViewState is a monitor listener that keeps the view state gauge on
// the published state, Loading included.
func (m *Metrics) ObserveViewState(_, next health.ViewState) {
	m.SetViewState(next.Kind)
}

// SetViewState marks kind as the active view state.
func (m *Metrics) SetViewState(kind health.Kind) {
	if m == nil {
		return
	}
	for _, k := range viewStates {
		value := 0.0
		if k == kind {
			value = 1
		}
		m.viewState.WithLabelValues(string(k)).Set(value)
	}
}

// IncNotifications counts a notification delivery result.
func (m *Metrics) IncNotifications(channel string, result string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, result).Inc()
}

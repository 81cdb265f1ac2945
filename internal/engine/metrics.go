package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xela07ax/campusface-client/internal/domain"
	"github.com/xela07ax/campusface-client/internal/reconcile"
)

type Metrics struct {
	// Latency: вызовы CampusFace API по методу и исходу (код статуса или error)
	APIRequestDuration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Reconcile: загрузки списков и оптимистичные решения
	ReconcileLoads   *prometheus.CounterVec
	ReconcileActions *prometheus.CounterVec

	OpenSessions prometheus.Gauge

	// Journal: заполненность буфера (backpressure)
	JournalBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		APIRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusface_api_request_duration_seconds",
			Help:    "Histogram of CampusFace API call latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "outcome"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "campusface_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),

		ReconcileLoads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "campusface_reconcile_loads_total",
			Help: "Request collection loads by kind and outcome.",
		}, []string{"kind", "outcome"}),

		ReconcileActions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "campusface_reconcile_actions_total",
			Help: "Optimistic approve/reject actions by stage.",
		}, []string{"kind", "decision", "stage"}), // stage: optimistic, confirmed, rolled_back, ignored

		OpenSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "campusface_console_open_sessions",
			Help: "Reconciliation sessions held by the console.",
		}),

		JournalBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "campusface_journal_buffer_utilization",
			Help: "Current number of decision events in journal buffer.",
		}),
	}
}

// Metrics реализует reconcile.Observer.
var _ reconcile.Observer = (*Metrics)(nil)

func (m *Metrics) OnLoad(kind domain.RequestKind, scope string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ReconcileLoads.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) OnOptimistic(a *reconcile.PendingAction) {
	m.ReconcileActions.WithLabelValues(string(a.Kind), string(a.Decision), "optimistic").Inc()
}

func (m *Metrics) OnSettled(o reconcile.Outcome) {
	stage := "confirmed"
	switch {
	case o.Ignored:
		stage = "ignored"
	case o.Err != nil:
		stage = "rolled_back"
	}
	m.ReconcileActions.WithLabelValues(string(o.Action.Kind), string(o.Action.Decision), stage).Inc()
}

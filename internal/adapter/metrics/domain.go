package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts business events: gate verdicts, analysis runs,
// rate-limit decisions and circuit breaker transitions.
type DomainMetrics struct {
	GateEvaluations    *prometheus.CounterVec
	AnalysisRuns       *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	QueueDepth         prometheus.Gauge
	RateLimitDecisions *prometheus.CounterVec
	RateLimitFallbacks prometheus.Counter
	AuthFailures       *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		GateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "evaluations_total",
			Help:      "Gate evaluations by stage and resulting status.",
		}, []string{"stage", "status"}),
		AnalysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Completed analyses by execution mode (crew or fallback) and trigger.",
		}, []string{"mode", "trigger"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall time of an analysis run by mode.",
			Buckets:   []float64{.1, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"mode"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "queue_depth",
			Help:      "Background analyses waiting for a worker.",
		}),
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_limit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by bucket and result (allowed, denied).",
		}, []string{"bucket", "result"}),
		RateLimitFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rate_limit",
			Name:      "fallbacks_total",
			Help:      "Decisions served by the in-memory limiter because Redis failed.",
		}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected requests by reason: missing, invalid, unavailable or error.",
		}, []string{"reason"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state_changes_total",
			Help:      "Circuit breaker transitions by component and new state.",
		}, []string{"component", "state"}),
	}

	reg.MustRegister(
		m.GateEvaluations,
		m.AnalysisRuns,
		m.AnalysisDuration,
		m.QueueDepth,
		m.RateLimitDecisions,
		m.RateLimitFallbacks,
		m.AuthFailures,
		m.BreakerState,
		m.BreakerTransitions,
	)
	return m
}

// BreakerListener returns a state-change callback for the named component.
// State names from both breaker libraries are accepted.
func (m *DomainMetrics) BreakerListener(component string) func(from, to string) {
	m.BreakerState.WithLabelValues(component).Set(0)
	return func(_, to string) {
		m.BreakerTransitions.WithLabelValues(component, to).Inc()
		m.BreakerState.WithLabelValues(component).Set(stateValue(to))
	}
}

func stateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open", "half_open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}

// Decision implements ratelimit.Recorder.
func (m *DomainMetrics) Decision(bucket string, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(bucket, result).Inc()
}

// Fallback implements ratelimit.Recorder.
func (m *DomainMetrics) Fallback() {
	m.RateLimitFallbacks.Inc()
}

func (m *DomainMetrics) GateEvaluated(stage, status string) {
	m.GateEvaluations.WithLabelValues(stage, status).Inc()
}

func (m *DomainMetrics) AnalysisCompleted(mode, trigger string, elapsed time.Duration) {
	m.AnalysisRuns.WithLabelValues(mode, trigger).Inc()
	m.AnalysisDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *DomainMetrics) AnalysisQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

func (m *DomainMetrics) AuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

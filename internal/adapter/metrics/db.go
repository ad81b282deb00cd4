package metrics

import "github.com/prometheus/client_golang/prometheus"

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
	Errors        *prometheus.CounterVec
}

func NewDBMetrics(reg prometheus.Registerer) *DBMetrics {
	m := &DBMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by statement verb.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"query"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Failed database queries by statement verb.",
		}, []string{"query"}),
	}

	reg.MustRegister(m.QueryDuration, m.Errors)
	return m
}

type RedisMetrics struct {
	OpsTotal         *prometheus.CounterVec
	OpDuration       *prometheus.HistogramVec
	ConnectionErrors prometheus.Counter
}

func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis operations by command and status.",
		}, []string{"operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis operation duration in seconds.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "connection_errors_total",
			Help:      "Failed Redis dials.",
		}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.ConnectionErrors)
	return m
}

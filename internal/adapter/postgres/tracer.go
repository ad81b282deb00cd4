package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/startupai/internal/adapter/metrics"
)

// QueryTracer records per-statement latency and errors.
type QueryTracer struct {
	metrics *metrics.DBMetrics
	clock   clockwork.Clock
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(m *metrics.DBMetrics, clock clockwork.Clock) *QueryTracer {
	return &QueryTracer{metrics: m, clock: clock}
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	verb  string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{start: t.clock.Now(), verb: statementVerb(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(qctx.verb).Observe(t.clock.Since(qctx.start).Seconds())
	if data.Err != nil && data.Err != pgx.ErrNoRows {
		t.metrics.Errors.WithLabelValues(qctx.verb).Inc()
	}
}

// statementVerb keeps metric cardinality bounded by labelling with the
// leading SQL keyword only.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToLower(fields[0])
	switch verb {
	case "select", "insert", "update", "delete", "with", "begin", "commit", "rollback":
		return verb
	default:
		return "other"
	}
}

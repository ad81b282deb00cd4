package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/startupai/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testPool        *pgxpool.Pool
	testDatabaseURL string
)

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}
	testDatabaseURL = connStr

	testPool, err = Connect(ctx, testDatabaseURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test database: %v\n", err)
		os.Exit(1)
	}

	if err := RunMigrationsWithLock(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
	}
	os.Exit(code)
}

// setupTestDB returns the shared pool and truncates all tables after the test.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Cleanup(func() {
		if _, err := testPool.Exec(context.Background(), "TRUNCATE projects, evidence, analysis_runs CASCADE"); err != nil {
			t.Logf("Failed to truncate tables: %v", err)
		}
	})
	return testPool
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not-a-url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse database URL")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	pool := setupTestDB(t)

	require.NoError(t, RunMigrationsWithLock(context.Background(), pool))

	var tables int
	err := pool.QueryRow(context.Background(), `
		SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('projects', 'evidence', 'analysis_runs')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 3, tables)
}

func TestQueryTracer_RecordsQueries(t *testing.T) {
	setupTestDB(t)

	m := metrics.NewDBMetrics(prometheus.NewRegistry())
	traced, err := Connect(context.Background(), testDatabaseURL, NewQueryTracer(m, clockwork.NewRealClock()))
	require.NoError(t, err)
	defer traced.Close()

	_, err = traced.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
	_, err = traced.Exec(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("select")))
}

func TestStatementVerb(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                        "select",
		"\n\t  update projects SET x = 1": "update",
		"INSERT INTO evidence":            "insert",
		"TRUNCATE projects":               "other",
		"":                                "unknown",
	}
	for sql, want := range tests {
		assert.Equal(t, want, statementVerb(sql), sql)
	}
}

//go:build integration

// Package postgrestest starts a throwaway PostgreSQL for integration tests.
// It is only compiled with the integration build tag.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/critique/pkg/observability"
	"github.com/platinummonkey/critique/pkg/storage"
	"github.com/platinummonkey/critique/pkg/storage/postgres"
)

// SetupPostgresContainer starts PostgreSQL, runs migrations and returns a
// connection manager plus a cleanup func. The test is skipped when no
// container runtime is available.
func SetupPostgresContainer(t *testing.T) (*postgres.ConnectionManager, func()) {
	t.Helper()

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("critique_test"),
		tcpostgres.WithUsername("critique"),
		tcpostgres.WithPassword("critique_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	cfg := storage.DefaultConfig()
	cfg.PostgresURL = connStr

	cm, err := postgres.Open(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(ctx, cm.Primary(), logger))

	cleanup := func() {
		if err := cm.Close(); err != nil {
			t.Logf("Warning: Failed to close database: %v", err)
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return cm, cleanup
}

// MustInsert runs an INSERT and returns the new row id
func MustInsert(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRowx(query+" RETURNING id", args...).Scan(&id))
	return id
}

//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

/* Test helpers for PostgreSQL integration tests
 * Starts a real postgres container, applies the embedded migrations and hands back a repository
 */

const (
	defaultDatabase = "router"
	defaultUser     = "router"
	defaultPassword = "router"
)

// SetupPostgres starts a container, migrates it and returns a connected repository
func SetupPostgres(t *testing.T, ctx context.Context) *postgres.Repository {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(defaultDatabase),
		tcpostgres.WithUsername(defaultUser),
		tcpostgres.WithPassword(defaultPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(ctx, dsn))

	repo, err := postgres.NewRepository(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	return repo
}

// SeedEndpoint creates a project and a forward endpoint in it
func SeedEndpoint(t *testing.T, ctx context.Context, repo *postgres.Repository, projectKey, hookKey string) (webhook.Project, webhook.Endpoint) {
	t.Helper()

	project, err := repo.EnsureProject(ctx, projectKey)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	endpoint := webhook.Endpoint{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		HookKey:     hookKey,
		SecretHash:  "hash",
		Enabled:     true,
		RoutingType: webhook.ForwardURLRouting,
		TargetURL:   "http://destination.test",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.CreateEndpoint(ctx, endpoint))

	return project, endpoint
}

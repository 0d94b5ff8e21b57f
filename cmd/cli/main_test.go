package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/marcelsud/webhook-router/webhook/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashSecret(t *testing.T) {
	out, err := execute(t, "hash-secret", "--cost", "4")
	require.NoError(t, err)

	m := regexp.MustCompile(`secret:\s+(\S+)\nsecret_hash: (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 3)
	assert.True(t, secret.Verify(m[1], m[2]))
}

func TestEndpointCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("BCRYPT_COST", "4")

	t.Run("unknown project", func(t *testing.T) {
		_, err := execute(t, "create-endpoint", "acme", "orders", "--target-url", "https://example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("rotate unknown endpoint", func(t *testing.T) {
		_, err := execute(t, "rotate-secret", "acme", "orders")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook not found")
	})

	t.Run("events rejects unknown status", func(t *testing.T) {
		_, err := execute(t, "events", "acme", "orders", "--status", "LOST")
		require.Error(t, err)
	})

	t.Run("bad transform rules", func(t *testing.T) {
		_, err := execute(t, "create-endpoint", "acme", "orders", "--transform-rules", "{")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "--transform-rules"))
	})
}

func TestUpdateEndpoint(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "cli.db")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("BCRYPT_COST", "4")

	find := func(t *testing.T) webhook.Endpoint {
		t.Helper()
		repo, err := sqlite.NewRepository(ctx, path)
		require.NoError(t, err)
		defer repo.Close(ctx)
		project, err := repo.FindProject(ctx, "acme")
		require.NoError(t, err)
		endpoint, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		return endpoint
	}

	repo, err := sqlite.NewRepository(ctx, path)
	require.NoError(t, err)
	project, err := repo.EnsureProject(ctx, "acme")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, repo.CreateEndpoint(ctx, webhook.Endpoint{
		ID:          "endpoint-1",
		ProjectID:   project.ID,
		HookKey:     "orders",
		SecretHash:  "hash",
		Enabled:     true,
		RoutingType: webhook.ForwardURLRouting,
		TargetURL:   "https://example.com/in",
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
	require.NoError(t, repo.Close(ctx))

	t.Run("disable", func(t *testing.T) {
		out, err := execute(t, "update-endpoint", "acme", "orders", "--disabled", "--actor", "ops")
		require.NoError(t, err)
		assert.Contains(t, out, "enabled=false")

		endpoint := find(t)
		assert.False(t, endpoint.Enabled)
		assert.Equal(t, "https://example.com/in", endpoint.TargetURL, "unset flags are kept")
		assert.Equal(t, "hash", endpoint.SecretHash)
	})

	t.Run("enable and reroute", func(t *testing.T) {
		_, err := execute(t, "update-endpoint", "acme", "orders", "--enabled",
			"--routing-type", "TRIGGER_INTERNAL", "--workflow-id", "wf-1")
		require.NoError(t, err)

		endpoint := find(t)
		assert.True(t, endpoint.Enabled)
		assert.Equal(t, webhook.InternalRouting, endpoint.RoutingType)
		assert.Equal(t, "wf-1", endpoint.WorkflowID)
	})

	t.Run("enabled and disabled together", func(t *testing.T) {
		_, err := execute(t, "update-endpoint", "acme", "orders", "--enabled", "--disabled")
		require.Error(t, err)
	})

	t.Run("unknown routing type", func(t *testing.T) {
		_, err := execute(t, "update-endpoint", "acme", "orders", "--routing-type", "EMAIL")
		require.Error(t, err)
		assert.True(t, errors.Is(err, webhook.ErrInvalidEndpoint))
	})
}

func TestSyncRunnerLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	runner := syncRunner{logger: zerolog.New(&buf)}

	runner.Go("route event e-1", func(context.Context) error {
		return errors.New("storing route result: database is locked")
	})
	runner.Go("route event e-2", func(context.Context) error { return nil })

	out := buf.String()
	assert.Contains(t, out, "database is locked")
	assert.Contains(t, out, "route event e-1")
	assert.NotContains(t, out, "e-2")
}

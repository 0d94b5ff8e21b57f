package sqlite_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/sqlite"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepository(t *testing.T) *sqlite.Repository {
	t.Helper()
	ctx := context.Background()

	repo, err := sqlite.NewRepository(ctx, filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(ctx) })

	return repo
}

func seedEndpoint(t *testing.T, repo *sqlite.Repository, projectKey, hookKey string) (webhook.Project, webhook.Endpoint) {
	t.Helper()
	ctx := context.Background()

	project, err := repo.EnsureProject(ctx, projectKey)
	require.NoError(t, err)

	now := time.Now().UTC()
	endpoint := webhook.Endpoint{
		ID:          projectKey + "-" + hookKey,
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

func newEvent(id, webhookID string, receivedAt time.Time) webhook.DeliveryEvent {
	return webhook.DeliveryEvent{
		ID:             id,
		WebhookID:      webhookID,
		ReceivedAt:     receivedAt,
		RequestHeaders: map[string]string{"x-foo": "bar"},
		RequestBody:    json.RawMessage(`{"a":1}`),
		RequestOrigin:  "203.0.113.9",
		Status:         webhook.Received,
	}
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	first, err := repo.EnsureProject(ctx, "acme")
	require.NoError(t, err)
	second, err := repo.EnsureProject(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first, second, "ensuring an existing project must not create another")

	found, err := repo.FindProject(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindProject(ctx, "unknown")
	assert.ErrorIs(t, err, webhook.ErrNotFound)
}

func TestEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("create and find round trips every field", func(t *testing.T) {
		repo := newRepository(t)
		project, err := repo.EnsureProject(ctx, "acme")
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Microsecond)
		endpoint := webhook.Endpoint{
			ID:            "endpoint-1",
			ProjectID:     project.ID,
			HookKey:       "orders",
			Description:   "order events",
			SecretHash:    "hash",
			Enabled:       false,
			RoutingType:   webhook.AutomationEngineRouting,
			AutomationURL: "http://n8n.test/webhook/1",
			TransformRules: &transform.Rules{
				HeaderRewrites: map[string]string{"X-Foo": "bar"},
				BodyMappings:   []transform.BodyMapping{{Source: "$.a", Target: "x"}},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.CreateEndpoint(ctx, endpoint))

		found, err := repo.FindEndpoint(ctx, project.ID, "orders")

		require.NoError(t, err)
		assert.Equal(t, endpoint, found)
	})

	t.Run("hook keys are unique per project", func(t *testing.T) {
		repo := newRepository(t)
		_, endpoint := seedEndpoint(t, repo, "acme", "orders")

		duplicate := endpoint
		duplicate.ID = "another-id"
		err := repo.CreateEndpoint(ctx, duplicate)
		assert.ErrorIs(t, err, webhook.ErrConflict)

		_, other := seedEndpoint(t, repo, "globex", "orders")
		assert.NotEqual(t, endpoint.ProjectID, other.ProjectID)
	})

	t.Run("endpoints of another project are not found", func(t *testing.T) {
		repo := newRepository(t)
		seedEndpoint(t, repo, "acme", "orders")
		globex, err := repo.EnsureProject(ctx, "globex")
		require.NoError(t, err)

		_, err = repo.FindEndpoint(ctx, globex.ID, "orders")

		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("list is ordered by hook key", func(t *testing.T) {
		repo := newRepository(t)
		project, _ := seedEndpoint(t, repo, "acme", "stripe")
		seedEndpoint(t, repo, "acme", "github")

		endpoints, err := repo.ListEndpoints(ctx, project.ID)

		require.NoError(t, err)
		require.Len(t, endpoints, 2)
		assert.Equal(t, "github", endpoints[0].HookKey)
		assert.Equal(t, "stripe", endpoints[1].HookKey)
	})

	t.Run("upsert replaces the configuration", func(t *testing.T) {
		repo := newRepository(t)
		project, endpoint := seedEndpoint(t, repo, "acme", "orders")

		changed := endpoint
		changed.ID = "ignored-on-update"
		changed.TargetURL = "http://other.test"
		changed.Enabled = false
		require.NoError(t, repo.UpsertEndpoint(ctx, changed))

		found, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		assert.Equal(t, endpoint.ID, found.ID)
		assert.Equal(t, "http://other.test", found.TargetURL)
		assert.False(t, found.Enabled)
	})

	t.Run("update secret hash", func(t *testing.T) {
		repo := newRepository(t)
		project, endpoint := seedEndpoint(t, repo, "acme", "orders")

		require.NoError(t, repo.UpdateSecretHash(ctx, endpoint.ID, "new-hash"))
		found, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", found.SecretHash)

		assert.ErrorIs(t, repo.UpdateSecretHash(ctx, "missing", "x"), webhook.ErrNotFound)
	})

	t.Run("update replaces configuration but not the secret", func(t *testing.T) {
		repo := newRepository(t)
		project, endpoint := seedEndpoint(t, repo, "acme", "orders")

		changed := endpoint
		changed.Description = "paused"
		changed.Enabled = false
		changed.RoutingType = webhook.InternalRouting
		changed.WorkflowID = "wf-9"
		changed.SecretHash = "must-not-be-written"
		changed.TransformRules = &transform.Rules{AdditionalHeaders: map[string]string{"X-Env": "prod"}}
		require.NoError(t, repo.UpdateEndpoint(ctx, changed))

		found, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		assert.Equal(t, "paused", found.Description)
		assert.False(t, found.Enabled)
		assert.Equal(t, webhook.InternalRouting, found.RoutingType)
		assert.Equal(t, "wf-9", found.WorkflowID)
		assert.Equal(t, changed.TransformRules, found.TransformRules)
		assert.Equal(t, endpoint.SecretHash, found.SecretHash)

		changed.ID = "missing"
		assert.ErrorIs(t, repo.UpdateEndpoint(ctx, changed), webhook.ErrNotFound)
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("get is scoped to the webhook", func(t *testing.T) {
		repo := newRepository(t)
		_, orders := seedEndpoint(t, repo, "acme", "orders")
		_, invoices := seedEndpoint(t, repo, "acme", "invoices")

		event := newEvent("event-1", orders.ID, time.Now())
		require.NoError(t, repo.CreateEvent(ctx, event))

		found, err := repo.GetEvent(ctx, orders.ID, "event-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Received, found.Status)
		assert.Equal(t, "bar", found.RequestHeaders["x-foo"])
		assert.JSONEq(t, `{"a":1}`, string(found.RequestBody))
		assert.Nil(t, found.RouteResult)
		assert.Nil(t, found.ReplayOf)

		_, err = repo.GetEvent(ctx, invoices.ID, "event-1")
		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("updates only move forward from the expected status", func(t *testing.T) {
		repo := newRepository(t)
		_, endpoint := seedEndpoint(t, repo, "acme", "orders")
		event := newEvent("event-1", endpoint.ID, time.Now())
		require.NoError(t, repo.CreateEvent(ctx, event))

		routed := event
		routed.Status = webhook.Routed
		require.NoError(t, repo.UpdateEvent(ctx, routed, webhook.Received))

		err := repo.UpdateEvent(ctx, routed, webhook.Received)
		assert.ErrorIs(t, err, webhook.ErrInvalidTransition)

		status := 201
		done := routed
		done.Status = webhook.Success
		done.RouteResult = &webhook.RouteResult{Success: true, StatusCode: &status, ResponseBody: json.RawMessage(`{"ok":true}`), Duration: 12}
		require.NoError(t, repo.UpdateEvent(ctx, done, webhook.Routed))

		found, err := repo.GetEvent(ctx, endpoint.ID, "event-1")
		require.NoError(t, err)
		assert.Equal(t, webhook.Success, found.Status)
		require.NotNil(t, found.RouteResult)
		assert.Equal(t, 201, *found.RouteResult.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(found.RouteResult.ResponseBody))
		assert.Equal(t, int64(12), found.RouteResult.Duration)

		assert.ErrorIs(t, repo.UpdateEvent(ctx, newEvent("missing", endpoint.ID, time.Now()), webhook.Received), webhook.ErrNotFound)
	})

	t.Run("replays keep their link to the original", func(t *testing.T) {
		repo := newRepository(t)
		_, endpoint := seedEndpoint(t, repo, "acme", "orders")
		original := newEvent("event-1", endpoint.ID, time.Now())
		require.NoError(t, repo.CreateEvent(ctx, original))

		replay := newEvent("event-2", endpoint.ID, time.Now())
		replay.RequestOrigin = webhook.ReplayOrigin
		replay.ReplayOf = &original.ID
		require.NoError(t, repo.CreateEvent(ctx, replay))

		found, err := repo.GetEvent(ctx, endpoint.ID, "event-2")
		require.NoError(t, err)
		require.NotNil(t, found.ReplayOf)
		assert.Equal(t, "event-1", *found.ReplayOf)
		assert.Equal(t, webhook.ReplayOrigin, found.RequestOrigin)
	})

	t.Run("list is newest first with filter and paging", func(t *testing.T) {
		repo := newRepository(t)
		_, endpoint := seedEndpoint(t, repo, "acme", "orders")
		base := time.Now().Add(-time.Hour)

		for i := 0; i < 5; i++ {
			event := newEvent(fmt.Sprintf("event-%d", i), endpoint.ID, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.CreateEvent(ctx, event))
			if i%2 == 0 {
				event.Status = webhook.Routed
				require.NoError(t, repo.UpdateEvent(ctx, event, webhook.Received))
			}
		}

		events, total, err := repo.ListEvents(ctx, endpoint.ID, webhook.EventFilter{})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, events, 5)
		assert.Equal(t, "event-4", events[0].ID)
		assert.Equal(t, "event-0", events[4].ID)

		events, total, err = repo.ListEvents(ctx, endpoint.ID, webhook.EventFilter{Status: webhook.Routed, Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, events, 2)
		assert.Equal(t, "event-2", events[0].ID)
		assert.Equal(t, "event-0", events[1].ID)
	})

	t.Run("list of a webhook without events is empty", func(t *testing.T) {
		repo := newRepository(t)
		_, endpoint := seedEndpoint(t, repo, "acme", "orders")

		events, total, err := repo.ListEvents(ctx, endpoint.ID, webhook.EventFilter{})

		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}

func TestAudit(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	entry := webhook.AuditEntry{
		ID:          "audit-1",
		ActorUserID: "user-7",
		Action:      webhook.AuditWebhookCreate,
		EntityType:  "webhook",
		EntityID:    "endpoint-1",
		Details:     map[string]any{"hookKey": "orders"},
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.AppendAudit(ctx, entry))

	entries, err := repo.ListAudit(ctx, "endpoint-1")

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-7", entries[0].ActorUserID)
	assert.Equal(t, webhook.AuditWebhookCreate, entries[0].Action)
	assert.Equal(t, "orders", entries[0].Details["hookKey"])
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	_, endpoint := seedEndpoint(t, repo, "acme", "orders")
	before := time.Now().Add(-time.Second)

	for i, final := range []webhook.Status{webhook.Success, webhook.Failed, 0} {
		event := newEvent(fmt.Sprintf("event-%d", i), endpoint.ID, time.Now())
		require.NoError(t, repo.CreateEvent(ctx, event))
		if final == 0 {
			continue
		}
		event.Status = webhook.Routed
		require.NoError(t, repo.UpdateEvent(ctx, event, webhook.Received))
		event.Status = final
		event.RouteResult = &webhook.RouteResult{Success: final == webhook.Success}
		require.NoError(t, repo.UpdateEvent(ctx, event, webhook.Routed))
	}

	counts, err := repo.CountEventsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[webhook.Status]int64{webhook.Received: 1, webhook.Success: 1, webhook.Failed: 1}, counts)

	completed, err := repo.CountCompletedSince(ctx, before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), completed)

	completed, err = repo.CountCompletedSince(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), completed)
}

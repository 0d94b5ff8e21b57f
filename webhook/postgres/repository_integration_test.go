//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
Integration tests against a real PostgreSQL container.
Run with: go test -tags=integration ./webhook/postgres/...
*/

func newEvent(webhookID string, receivedAt time.Time) webhook.DeliveryEvent {
	return webhook.DeliveryEvent{
		ID:             uuid.New().String(),
		WebhookID:      webhookID,
		ReceivedAt:     receivedAt.UTC().Truncate(time.Microsecond),
		RequestHeaders: map[string]string{"x-foo": "bar"},
		RequestBody:    json.RawMessage(`{"a":{"b":42}}`),
		RequestOrigin:  "203.0.113.9",
		Status:         webhook.Received,
	}
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	repo := SetupPostgres(t, ctx)

	t.Run("endpoint round trip with transform rules", func(t *testing.T) {
		project, err := repo.EnsureProject(ctx, "acme")
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Microsecond)
		endpoint := webhook.Endpoint{
			ID:          uuid.New().String(),
			ProjectID:   project.ID,
			HookKey:     "orders",
			SecretHash:  "hash",
			Enabled:     true,
			RoutingType: webhook.ForwardURLRouting,
			TargetURL:   "http://destination.test",
			TransformRules: &transform.Rules{
				AdditionalHeaders: map[string]string{"X-Source": "router"},
				BodyMappings:      []transform.BodyMapping{{Source: "$.a.b", Target: "x"}},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, repo.CreateEndpoint(ctx, endpoint))

		found, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		assert.Equal(t, endpoint, found)

		duplicate := endpoint
		duplicate.ID = uuid.New().String()
		assert.ErrorIs(t, repo.CreateEndpoint(ctx, duplicate), webhook.ErrConflict)
	})

	t.Run("endpoint update keeps the secret hash", func(t *testing.T) {
		project, err := repo.EnsureProject(ctx, "acme")
		require.NoError(t, err)
		endpoint, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)

		changed := endpoint
		changed.Enabled = false
		changed.SecretHash = "ignored"
		changed.TransformRules = nil
		changed.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.UpdateEndpoint(ctx, changed))

		found, err := repo.FindEndpoint(ctx, project.ID, "orders")
		require.NoError(t, err)
		assert.False(t, found.Enabled)
		assert.Nil(t, found.TransformRules)
		assert.Equal(t, endpoint.SecretHash, found.SecretHash)

		missing := changed
		missing.ID = uuid.New().String()
		assert.ErrorIs(t, repo.UpdateEndpoint(ctx, missing), webhook.ErrNotFound)
	})

	t.Run("events are scoped, ordered and filtered", func(t *testing.T) {
		_, endpoint := SeedEndpoint(t, ctx, repo, "globex", "billing")
		_, other := SeedEndpoint(t, ctx, repo, "globex", "shipping")
		base := time.Now().Add(-time.Hour)

		var ids []string
		for i := 0; i < 3; i++ {
			event := newEvent(endpoint.ID, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.CreateEvent(ctx, event))
			ids = append(ids, event.ID)
		}

		_, err := repo.GetEvent(ctx, other.ID, ids[0])
		assert.ErrorIs(t, err, webhook.ErrNotFound)

		found, err := repo.GetEvent(ctx, endpoint.ID, ids[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":{"b":42}}`, string(found.RequestBody))
		assert.Equal(t, "bar", found.RequestHeaders["x-foo"])

		events, total, err := repo.ListEvents(ctx, endpoint.ID, webhook.EventFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, events, 2)
		assert.Equal(t, ids[2], events[0].ID)
		assert.Equal(t, ids[1], events[1].ID)

		_, total, err = repo.ListEvents(ctx, endpoint.ID, webhook.EventFilter{Status: webhook.Failed})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("concurrent writers cannot both claim an event", func(t *testing.T) {
		_, endpoint := SeedEndpoint(t, ctx, repo, "initech", "reports")
		event := newEvent(endpoint.ID, time.Now())
		require.NoError(t, repo.CreateEvent(ctx, event))

		routed := event
		routed.Status = webhook.Routed

		var wg sync.WaitGroup
		results := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.UpdateEvent(ctx, routed, webhook.Received)
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, webhook.ErrInvalidTransition)
		}
		assert.Equal(t, 1, succeeded)

		status := 200
		done := routed
		done.Status = webhook.Success
		done.RouteResult = &webhook.RouteResult{Success: true, StatusCode: &status, Duration: 5}
		require.NoError(t, repo.UpdateEvent(ctx, done, webhook.Routed))

		found, err := repo.GetEvent(ctx, endpoint.ID, event.ID)
		require.NoError(t, err)
		assert.Equal(t, webhook.Success, found.Status)
		assert.Equal(t, 200, *found.RouteResult.StatusCode)

		completed, err := repo.CountCompletedSince(ctx, time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, completed, int64(1))
	})

	t.Run("audit entries", func(t *testing.T) {
		entityID := uuid.New().String()
		require.NoError(t, repo.AppendAudit(ctx, webhook.AuditEntry{
			ID:          uuid.New().String(),
			ActorUserID: "user-7",
			Action:      webhook.AuditWebhookRotateSecret,
			EntityType:  "webhook",
			EntityID:    entityID,
			Details:     map[string]any{"hookKey": "orders"},
			CreatedAt:   time.Now(),
		}))

		entries, err := repo.ListAudit(ctx, entityID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, webhook.AuditWebhookRotateSecret, entries[0].Action)
	})
}

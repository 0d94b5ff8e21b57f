package chi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/internal/http/chi"
	"github.com/marcelsud/webhook-router/internal/worker"
	"github.com/marcelsud/webhook-router/internal/ws"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/dispatch"
	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/marcelsud/webhook-router/webhook/sqlite"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainSecret = "s3cret"

// destination records every delivery it receives
type destination struct {
	mu       sync.Mutex
	bodies   []string
	headers  []http.Header
	response int
}

func (d *destination) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	d.mu.Lock()
	d.bodies = append(d.bodies, string(body))
	d.headers = append(d.headers, r.Header.Clone())
	status := d.response
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"received":true}`))
}

func (d *destination) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bodies)
}

type stack struct {
	server *httptest.Server
	dest   *destination
	runner *worker.Runner
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	repo, err := sqlite.NewRepository(ctx, filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })

	dest := &destination{response: http.StatusOK}
	destServer := httptest.NewServer(dest)
	t.Cleanup(destServer.Close)

	project, err := repo.EnsureProject(ctx, "acme")
	require.NoError(t, err)
	hash, err := secret.Hash(plainSecret, secret.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, repo.CreateEndpoint(ctx, webhook.Endpoint{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		HookKey:     "orders",
		SecretHash:  hash,
		Enabled:     true,
		RoutingType: webhook.ForwardURLRouting,
		TargetURL:   destServer.URL,
		TransformRules: &transform.Rules{
			AdditionalHeaders: map[string]string{"x-source": "router"},
			BodyMappings:      []transform.BodyMapping{{Source: "$.order.id", Target: "orderId"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))

	logger := zerolog.Nop()
	hub := ws.NewHub(logger)
	runner := worker.New(ctx, logger)
	service := webhook.NewService(repo, dispatch.NewClientWithHTTP(destServer.Client()), webhook.NewNotifier(hub, logger), runner, logger)
	service.SecretCost = secret.MinCost

	server := httptest.NewServer(chi.Handlers(logger, chi.Options{
		Service:   service,
		Realtime:  hub,
		RateLimit: 1000,
	}))
	t.Cleanup(server.Close)

	return &stack{server: server, dest: dest, runner: runner}
}

func (s *stack) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *stack) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.runner.Wait(ctx))
}

func TestWebhookLifecycle(t *testing.T) {
	s := newStack(t)
	actor := map[string]string{chi.ActorHeader: "user-1"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(s.server.URL, "http")+"/v1/realtime", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, ws.Request{Type: "subscribe", ProjectKey: "acme", HookKey: "orders"}))
	var ack ws.Message
	require.NoError(t, wsjson.Read(ctx, conn, &ack))
	require.Equal(t, "subscribed", ack.Type)

	resp, data := s.do(t, http.MethodPost, "/webhooks/acme/orders", `{"order":{"id":42},"note":"x"}`, map[string]string{
		secret.Header:   plainSecret,
		"Authorization": "Bearer upstream",
		"X-Trace":       "abc",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var receipt webhook.Receipt
	require.NoError(t, json.Unmarshal(data, &receipt))
	require.True(t, receipt.Success)
	s.wait(t)

	t.Run("event is delivered transformed", func(t *testing.T) {
		require.Equal(t, 1, s.dest.count())
		assert.JSONEq(t, `{"orderId":42}`, s.dest.bodies[0])
		assert.Equal(t, "router", s.dest.headers[0].Get("X-Source"))
		assert.Equal(t, "abc", s.dest.headers[0].Get("X-Trace"))
		assert.Empty(t, s.dest.headers[0].Get(secret.Header))
		assert.Empty(t, s.dest.headers[0].Get("Authorization"))
	})

	t.Run("event is stored with its result", func(t *testing.T) {
		resp, data := s.do(t, http.MethodGet, "/v1/projects/acme/webhooks/orders/events/"+receipt.EventID, "", actor)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var event webhook.DeliveryEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, webhook.Success, event.Status)
		require.NotNil(t, event.RouteResult)
		assert.True(t, event.RouteResult.Success)
		require.NotNil(t, event.RouteResult.StatusCode)
		assert.Equal(t, http.StatusOK, *event.RouteResult.StatusCode)
		assert.JSONEq(t, `{"order":{"id":42},"note":"x"}`, string(event.RequestBody))
		assert.NotContains(t, event.RequestHeaders, secret.Header)
		assert.NotContains(t, event.RequestHeaders, "authorization")
		assert.Equal(t, "abc", event.RequestHeaders["x-trace"])
	})

	t.Run("observers see received then success", func(t *testing.T) {
		var statuses []string
		for len(statuses) < 2 {
			var msg ws.Message
			require.NoError(t, wsjson.Read(ctx, conn, &msg))
			require.Equal(t, ws.EventWebhook, msg.Type)

			var note webhook.Notification
			require.NoError(t, json.Unmarshal(msg.Payload, &note))
			assert.Equal(t, receipt.EventID, note.EventID)
			assert.Equal(t, "orders", note.HookKey)
			statuses = append(statuses, note.Status.String())
		}
		assert.Equal(t, []string{"RECEIVED", "SUCCESS"}, statuses)
	})

	t.Run("replay creates a new resolved event", func(t *testing.T) {
		resp, data := s.do(t, http.MethodPost, "/v1/projects/acme/webhooks/orders/events/"+receipt.EventID+"/replay", "", actor)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

		var replay webhook.DeliveryEvent
		require.NoError(t, json.Unmarshal(data, &replay))
		assert.NotEqual(t, receipt.EventID, replay.ID)
		assert.Equal(t, webhook.Success, replay.Status)
		assert.Equal(t, webhook.ReplayOrigin, replay.RequestOrigin)
		require.NotNil(t, replay.ReplayOf)
		assert.Equal(t, receipt.EventID, *replay.ReplayOf)
		assert.Equal(t, 2, s.dest.count())
	})

	t.Run("rejected calls leave no event", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/webhooks/acme/orders", `{}`, map[string]string{secret.Header: "wrong"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, data := s.do(t, http.MethodPost, "/webhooks/acme/missing", `{}`, map[string]string{secret.Header: plainSecret})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, string(data), "webhook not found")

		resp, data = s.do(t, http.MethodGet, "/v1/projects/acme/webhooks/orders/events", "", actor)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var page struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(data, &page))
		assert.Equal(t, 2, page.Total)
	})
	t.Run("disabled endpoint rejects calls until enabled again", func(t *testing.T) {
		resp, data := s.do(t, http.MethodPatch, "/v1/projects/acme/webhooks/orders", `{"enabled":false}`, actor)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

		resp, data = s.do(t, http.MethodPost, "/webhooks/acme/orders", `{}`, map[string]string{secret.Header: plainSecret})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, string(data), "disabled")

		resp, _ = s.do(t, http.MethodPatch, "/v1/projects/acme/webhooks/orders", `{"enabled":true}`, actor)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = s.do(t, http.MethodPost, "/webhooks/acme/orders", `{}`, map[string]string{secret.Header: plainSecret})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		s.wait(t)
	})
}

func TestConcurrentReceipts(t *testing.T) {
	s := newStack(t)
	const calls = 20

	var wg sync.WaitGroup
	ids := make(chan string, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, s.server.URL+"/webhooks/acme/orders", strings.NewReader(`{"order":{"id":1}}`))
			req.Header.Set(secret.Header, plainSecret)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var receipt webhook.Receipt
			if json.NewDecoder(resp.Body).Decode(&receipt) == nil && receipt.Success {
				ids <- receipt.EventID
			}
		}()
	}
	wg.Wait()
	close(ids)
	s.wait(t)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, calls)
	assert.Equal(t, calls, s.dest.count())

	resp, data := s.do(t, http.MethodGet, "/v1/projects/acme/webhooks/orders/events?status=success&limit=100", "", map[string]string{chi.ActorHeader: "user-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Events []webhook.DeliveryEvent `json:"events"`
		Total  int                     `json:"total"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, calls, page.Total)
	assert.Len(t, page.Events, calls)
}

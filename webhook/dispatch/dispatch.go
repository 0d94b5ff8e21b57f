package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/webhook-router/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

/* Client is the outbound dispatcher
 * One POST per delivery attempt, no retries: failed events are recovered by replay only
 */

const (
	// DefaultTimeout bounds every outbound call so background routing cannot leak
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a destination response is kept in the event
	maxResponseBytes = 1 << 20

	internalAck = `{"message":"Internal workflow triggered"}`
)

// hopHeaders are owned by the transport or only meaningful for the inbound hop
var hopHeaders = map[string]struct{}{
	"host":                {},
	"content-length":      {},
	"connection":          {},
	"keep-alive":          {},
	"proxy-connection":    {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"accept-encoding":     {},
}

type Client struct {
	httpClient *http.Client
	duration   metric.Float64Histogram
}

// NewClient creates a dispatcher whose outbound requests are bounded by timeout
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	duration, err := otel.Meter("webhook-router/dispatch").Float64Histogram(
		"webhook.delivery.duration",
		metric.WithDescription("Duration of outbound webhook deliveries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		duration: duration,
	}
}

// NewClientWithHTTP wraps an existing http.Client, used by tests
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Dispatch delivers the event according to its route and always returns a result
func (c *Client) Dispatch(ctx context.Context, route webhook.Route, headers map[string]string, body json.RawMessage) webhook.RouteResult {
	started := time.Now()

	var result webhook.RouteResult
	var kind string
	switch r := route.(type) {
	case webhook.ForwardURL:
		kind = webhook.ForwardURLRouting.String()
		result = c.post(ctx, "target_url", r.URL, headers, body)
	case webhook.AutomationEngine:
		kind = webhook.AutomationEngineRouting.String()
		result = c.post(ctx, "automation_url", r.URL, headers, body)
	case webhook.Internal:
		kind = webhook.InternalRouting.String()
		result = triggerInternal()
	default:
		kind = "UNKNOWN"
		result = webhook.RouteResult{Error: fmt.Sprintf("unsupported route %T", route)}
	}

	result.Duration = time.Since(started).Milliseconds()
	c.record(ctx, kind, result)
	return result
}

func (c *Client) post(ctx context.Context, field, url string, headers map[string]string, body json.RawMessage) webhook.RouteResult {
	if strings.TrimSpace(url) == "" {
		return webhook.RouteResult{Error: field + " not configured"}
	}
	if len(body) == 0 {
		body = json.RawMessage("null")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return webhook.RouteResult{Error: fmt.Sprintf("creating request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if _, skip := hopHeaders[strings.ToLower(k)]; skip {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return webhook.RouteResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	statusCode := resp.StatusCode
	result := webhook.RouteResult{
		Success:      statusCode >= 200 && statusCode < 300,
		StatusCode:   &statusCode,
		ResponseBody: responseBody(data),
	}
	// a truncated response is not a confirmed delivery, whatever the status said
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("reading response body: %v", err)
	}
	return result
}

// responseBody keeps JSON responses as-is and stores anything else as a JSON string
func responseBody(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	encoded, err := json.Marshal(string(data))
	if err != nil {
		return nil
	}
	return encoded
}

// triggerInternal stands in for the in-process workflow engine
func triggerInternal() webhook.RouteResult {
	statusCode := http.StatusOK
	return webhook.RouteResult{
		Success:      true,
		StatusCode:   &statusCode,
		ResponseBody: json.RawMessage(internalAck),
	}
}

func (c *Client) record(ctx context.Context, kind string, result webhook.RouteResult) {
	if c.duration == nil {
		return
	}
	c.duration.Record(ctx, float64(result.Duration), metric.WithAttributes(
		attribute.String("routing.type", kind),
		attribute.Bool("delivery.success", result.Success),
	))
}

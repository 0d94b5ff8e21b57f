package webhook

import (
	"encoding/json"
	"time"
)

// ReplayOrigin marks events created by a replay instead of an inbound request
const ReplayOrigin = "replay"

/* DeliveryEvent represents one received occurrence and its routing outcome
 * Uses value semantics as it represents data, not behavior
 * Created with status Received, mutated only by the router, never deleted
 */
type DeliveryEvent struct {
	ID             string            `json:"id"`
	WebhookID      string            `json:"webhookId"`
	ReceivedAt     time.Time         `json:"receivedAt"`
	RequestHeaders map[string]string `json:"requestHeaders"`
	RequestBody    json.RawMessage   `json:"requestBody"`
	RequestOrigin  string            `json:"requestOrigin"`
	Status         Status            `json:"status"`
	RouteResult    *RouteResult      `json:"routeResult"`
	ReplayOf       *string           `json:"replayOfEventId"`
}

// RouteResult is the outcome of one delivery attempt
type RouteResult struct {
	Success      bool            `json:"success"`
	StatusCode   *int            `json:"statusCode,omitempty"`
	ResponseBody json.RawMessage `json:"responseBody,omitempty"`
	Error        string          `json:"error,omitempty"`
	// Duration is measured in milliseconds
	Duration int64 `json:"duration"`
}

// FailedResult builds a result for a delivery that never produced a response
func FailedResult(err error, started time.Time) RouteResult {
	return RouteResult{
		Success:  false,
		Error:    err.Error(),
		Duration: time.Since(started).Milliseconds(),
	}
}

// EventFilter narrows event listings
type EventFilter struct {
	Status Status
	Limit  int
	Offset int
}

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Normalize applies the default page size and clamps out of range values
func (f EventFilter) Normalize() EventFilter {
	if f.Limit <= 0 {
		f.Limit = defaultEventLimit
	}
	if f.Limit > maxEventLimit {
		f.Limit = maxEventLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// AuditEntry is an actor attributed record of a management action
type AuditEntry struct {
	ID          string
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Details     map[string]any
	CreatedAt   time.Time
}

// Audit actions emitted by the service
const (
	AuditWebhookCreate       = "WEBHOOK_CREATE"
	AuditWebhookUpdate       = "WEBHOOK_UPDATE"
	AuditWebhookRotateSecret = "WEBHOOK_ROTATE_SECRET"
	AuditWebhookEventReplay  = "WEBHOOK_EVENT_REPLAY"
)

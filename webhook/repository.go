package webhook

import (
	"context"
	"encoding/json"
)

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// ProjectReader resolves tenants by their public key
type ProjectReader interface {
	FindProject(ctx context.Context, projectKey string) (Project, error)
}

// EndpointReader provides read operations for endpoint configuration
type EndpointReader interface {
	FindEndpoint(ctx context.Context, projectID, hookKey string) (Endpoint, error)
	ListEndpoints(ctx context.Context, projectID string) ([]Endpoint, error)
}

// EndpointWriter provides write operations for endpoint configuration
type EndpointWriter interface {
	/* CreateEndpoint returns ErrConflict when (project, hook key) is taken
	 */
	CreateEndpoint(ctx context.Context, endpoint Endpoint) error
	// UpdateEndpoint replaces the editable configuration, the secret hash is left alone
	UpdateEndpoint(ctx context.Context, endpoint Endpoint) error
	UpdateSecretHash(ctx context.Context, endpointID, secretHash string) error
}

// EventReader provides read operations for delivery events
type EventReader interface {
	/* GetEvent is scoped to the webhook, an event of another webhook is ErrNotFound
	 */
	GetEvent(ctx context.Context, webhookID, eventID string) (DeliveryEvent, error)
	ListEvents(ctx context.Context, webhookID string, filter EventFilter) ([]DeliveryEvent, int, error)
}

// EventWriter provides write operations for delivery events
type EventWriter interface {
	CreateEvent(ctx context.Context, event DeliveryEvent) error
	/* UpdateEvent persists status and route result only if the stored status still equals from
	 * Returns ErrInvalidTransition otherwise, which keeps transitions monotonic across writers
	 */
	UpdateEvent(ctx context.Context, event DeliveryEvent, from Status) error
}

// AuditWriter is the sink for audit log entries
type AuditWriter interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	ProjectReader
	EndpointReader
	EndpointWriter
	EventReader
	EventWriter
	AuditWriter
	Close(ctx context.Context) error
}

// Dispatcher delivers a transformed event to its destination
type Dispatcher interface {
	Dispatch(ctx context.Context, route Route, headers map[string]string, body json.RawMessage) RouteResult
}

// Broadcaster publishes a payload on a realtime channel
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, payload []byte) error
}

// Runner executes work off the request path
type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/webhook/secret"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/rs/zerolog"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the business operations exposed to the HTTP layer
type UseCase interface {
	Receive(ctx context.Context, req ReceiveRequest) (Receipt, error)
	Replay(ctx context.Context, projectKey, hookKey, eventID, actor string) (DeliveryEvent, error)
	GetEvent(ctx context.Context, projectKey, hookKey, eventID string) (DeliveryEvent, error)
	ListEvents(ctx context.Context, projectKey, hookKey string, filter EventFilter) ([]DeliveryEvent, int, error)
	CreateEndpoint(ctx context.Context, projectKey string, input EndpointInput, actor string) (Endpoint, string, error)
	UpdateEndpoint(ctx context.Context, projectKey, hookKey string, update EndpointUpdate, actor string) (Endpoint, error)
	RotateSecret(ctx context.Context, projectKey, hookKey, actor string) (string, error)
	GetEndpoint(ctx context.Context, projectKey, hookKey string) (Endpoint, error)
	ListEndpoints(ctx context.Context, projectKey string) ([]Endpoint, error)
}

// ReceiveRequest is one inbound webhook call
type ReceiveRequest struct {
	ProjectKey string
	HookKey    string
	Headers    map[string]string
	Body       json.RawMessage
	Origin     string
	Secret     string
}

// Receipt is returned to the caller before routing starts
type Receipt struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// EndpointInput holds the fields accepted when an endpoint is created
type EndpointInput struct {
	HookKey        string
	Description    string
	RoutingType    RoutingType
	TargetURL      string
	AutomationURL  string
	WorkflowID     string
	TransformRules *transform.Rules
	Enabled        *bool
}

/* EndpointUpdate holds the fields an operator may change, nil leaves a field as it is
 * TransformRules replaces the whole rule set, an empty set turns transformation off
 */
type EndpointUpdate struct {
	Description    *string
	RoutingType    *RoutingType
	TargetURL      *string
	AutomationURL  *string
	WorkflowID     *string
	TransformRules *transform.Rules
	Enabled        *bool
}

var errWebhookNotFound = fmt.Errorf("webhook %w", ErrNotFound)

type Service struct {
	Repo       Repository
	Dispatcher Dispatcher
	Notifier   *Notifier
	Runner     Runner
	Logger     zerolog.Logger
	// SecretCost is the bcrypt cost used for new secrets, 0 means secret.DefaultCost
	SecretCost int
}

// NewService creates a new webhook service with dependency injection
func NewService(repo Repository, dispatcher Dispatcher, notifier *Notifier, runner Runner, logger zerolog.Logger) *Service {
	return &Service{
		Repo:       repo,
		Dispatcher: dispatcher,
		Notifier:   notifier,
		Runner:     runner,
		Logger:     logger,
	}
}

// Receive authenticates an inbound call, records it and schedules routing.
// It returns as soon as the event is stored, routing never delays the caller.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (Receipt, error) {
	project, endpoint, err := s.resolve(ctx, req.ProjectKey, req.HookKey)
	if err != nil {
		return Receipt{}, err
	}
	if !endpoint.Enabled {
		return Receipt{}, ErrEndpointDisabled
	}
	if !secret.Verify(req.Secret, endpoint.SecretHash) {
		return Receipt{}, ErrInvalidSecret
	}

	body := req.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}

	event := DeliveryEvent{
		ID:             uuid.New().String(),
		WebhookID:      endpoint.ID,
		ReceivedAt:     time.Now().UTC(),
		RequestHeaders: SanitizeHeaders(req.Headers),
		RequestBody:    body,
		RequestOrigin:  req.Origin,
		Status:         Received,
	}
	if err := s.Repo.CreateEvent(ctx, event); err != nil {
		return Receipt{}, fmt.Errorf("storing event: %w", err)
	}

	s.Notifier.Notify(ctx, project.Key, Notification{
		HookKey:    endpoint.HookKey,
		EventID:    event.ID,
		Status:     event.Status,
		ReceivedAt: &event.ReceivedAt,
	})

	s.Runner.Go("route event "+event.ID, func(ctx context.Context) error {
		_, err := s.Route(ctx, project, endpoint, event)
		return err
	})

	return Receipt{Success: true, EventID: event.ID}, nil
}

// Route drives an event from Received to a terminal state.
// Transform and dispatch failures end in Failed, only persistence errors are returned.
func (s *Service) Route(ctx context.Context, project Project, endpoint Endpoint, event DeliveryEvent) (DeliveryEvent, error) {
	if err := s.transition(ctx, &event, Routed, nil); err != nil {
		return event, fmt.Errorf("marking event routed: %w", err)
	}

	result := s.deliver(ctx, endpoint, event)

	next := Failed
	if result.Success {
		next = Success
	}
	if err := s.transition(ctx, &event, next, &result); err != nil {
		return event, fmt.Errorf("storing route result: %w", err)
	}

	s.Logger.Debug().
		Str("event_id", event.ID).
		Str("hook_key", endpoint.HookKey).
		Str("status", event.Status.String()).
		Int64("duration_ms", result.Duration).
		Msg("event routed")

	s.Notifier.Notify(ctx, project.Key, Notification{
		HookKey:     endpoint.HookKey,
		EventID:     event.ID,
		Status:      event.Status,
		RouteResult: event.RouteResult,
		ReplayOf:    event.ReplayOf,
	})

	return event, nil
}

// deliver runs the transform and the dispatcher, turning any panic into a failed result
func (s *Service) deliver(ctx context.Context, endpoint Endpoint, event DeliveryEvent) (result RouteResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = FailedResult(fmt.Errorf("routing panicked: %v", r), started)
		}
	}()

	route, err := endpoint.Route()
	if err != nil {
		return FailedResult(err, started)
	}

	headers, body := transform.Apply(endpoint.TransformRules, event.RequestHeaders, event.RequestBody)
	return s.Dispatcher.Dispatch(ctx, route, headers, body)
}

func (s *Service) transition(ctx context.Context, event *DeliveryEvent, next Status, result *RouteResult) error {
	if !event.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, event.Status, next)
	}

	updated := *event
	updated.Status = next
	updated.RouteResult = result
	if err := s.Repo.UpdateEvent(ctx, updated, event.Status); err != nil {
		return err
	}
	*event = updated
	return nil
}

// Replay re-submits a recorded event as a new event and waits for its terminal state
func (s *Service) Replay(ctx context.Context, projectKey, hookKey, eventID, actor string) (DeliveryEvent, error) {
	project, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	if err != nil {
		return DeliveryEvent{}, err
	}

	original, err := s.Repo.GetEvent(ctx, endpoint.ID, eventID)
	if err != nil {
		return DeliveryEvent{}, fmt.Errorf("getting event: %w", err)
	}

	replay := DeliveryEvent{
		ID:             uuid.New().String(),
		WebhookID:      endpoint.ID,
		ReceivedAt:     time.Now().UTC(),
		RequestHeaders: copyHeaders(original.RequestHeaders),
		RequestBody:    append(json.RawMessage(nil), original.RequestBody...),
		RequestOrigin:  ReplayOrigin,
		Status:         Received,
		ReplayOf:       &original.ID,
	}

	// Once started, a replay runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	if err := s.Repo.CreateEvent(ctx, replay); err != nil {
		return DeliveryEvent{}, fmt.Errorf("storing replay event: %w", err)
	}

	s.Notifier.Notify(ctx, project.Key, Notification{
		HookKey:    endpoint.HookKey,
		EventID:    replay.ID,
		Status:     replay.Status,
		ReceivedAt: &replay.ReceivedAt,
		ReplayOf:   replay.ReplayOf,
	})

	if _, err := s.Route(ctx, project, endpoint, replay); err != nil {
		return DeliveryEvent{}, fmt.Errorf("routing replay: %w", err)
	}

	err = s.Repo.AppendAudit(ctx, AuditEntry{
		ID:          uuid.New().String(),
		ActorUserID: actor,
		Action:      AuditWebhookEventReplay,
		EntityType:  "webhook_event",
		EntityID:    replay.ID,
		Details: map[string]any{
			"projectKey":      projectKey,
			"hookKey":         hookKey,
			"originalEventId": original.ID,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return DeliveryEvent{}, fmt.Errorf("appending audit log: %w", err)
	}

	resolved, err := s.Repo.GetEvent(ctx, endpoint.ID, replay.ID)
	if err != nil {
		return DeliveryEvent{}, fmt.Errorf("getting replay event: %w", err)
	}
	return resolved, nil
}

// GetEvent returns one event of an endpoint
func (s *Service) GetEvent(ctx context.Context, projectKey, hookKey, eventID string) (DeliveryEvent, error) {
	_, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	if err != nil {
		return DeliveryEvent{}, err
	}
	event, err := s.Repo.GetEvent(ctx, endpoint.ID, eventID)
	if err != nil {
		return DeliveryEvent{}, fmt.Errorf("getting event: %w", err)
	}
	return event, nil
}

// ListEvents returns a page of events, newest first, and the total matching the filter
func (s *Service) ListEvents(ctx context.Context, projectKey, hookKey string, filter EventFilter) ([]DeliveryEvent, int, error) {
	if filter.Status != 0 {
		if err := filter.Status.Validate(); err != nil {
			return nil, 0, fmt.Errorf("validating status: %w", err)
		}
	}
	_, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	if err != nil {
		return nil, 0, err
	}
	events, total, err := s.Repo.ListEvents(ctx, endpoint.ID, filter.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("listing events: %w", err)
	}
	return events, total, nil
}

// CreateEndpoint stores a new endpoint and returns its plaintext secret, the only time it is visible
func (s *Service) CreateEndpoint(ctx context.Context, projectKey string, input EndpointInput, actor string) (Endpoint, string, error) {
	if err := ValidateHookKey(input.HookKey); err != nil {
		return Endpoint{}, "", fmt.Errorf("validating hook key: %w", err)
	}
	if err := input.RoutingType.Validate(); err != nil {
		return Endpoint{}, "", fmt.Errorf("validating routing type: %w: %v", ErrInvalidEndpoint, err)
	}
	if err := input.TransformRules.Validate(); err != nil {
		return Endpoint{}, "", fmt.Errorf("validating transform rules: %w: %v", ErrInvalidEndpoint, err)
	}

	project, err := s.Repo.FindProject(ctx, projectKey)
	if err != nil {
		return Endpoint{}, "", fmt.Errorf("finding project: %w", err)
	}

	generated, err := secret.New(s.SecretCost)
	if err != nil {
		return Endpoint{}, "", fmt.Errorf("generating secret: %w", err)
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	now := time.Now().UTC()
	endpoint := Endpoint{
		ID:             uuid.New().String(),
		ProjectID:      project.ID,
		HookKey:        input.HookKey,
		Description:    input.Description,
		SecretHash:     generated.Hash,
		Enabled:        enabled,
		RoutingType:    input.RoutingType,
		TargetURL:      input.TargetURL,
		AutomationURL:  input.AutomationURL,
		WorkflowID:     input.WorkflowID,
		TransformRules: input.TransformRules,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.CreateEndpoint(ctx, endpoint); err != nil {
		return Endpoint{}, "", fmt.Errorf("creating endpoint: %w", err)
	}

	err = s.Repo.AppendAudit(ctx, AuditEntry{
		ID:          uuid.New().String(),
		ActorUserID: actor,
		Action:      AuditWebhookCreate,
		EntityType:  "webhook",
		EntityID:    endpoint.ID,
		Details:     map[string]any{"projectKey": projectKey, "hookKey": endpoint.HookKey},
		CreatedAt:   now,
	})
	if err != nil {
		return Endpoint{}, "", fmt.Errorf("appending audit log: %w", err)
	}

	return endpoint, generated.Plain, nil
}

// UpdateEndpoint applies an operator change to an endpoint. Disabling it closes the receiver with 403.
func (s *Service) UpdateEndpoint(ctx context.Context, projectKey, hookKey string, update EndpointUpdate, actor string) (Endpoint, error) {
	if update.RoutingType != nil {
		if err := update.RoutingType.Validate(); err != nil {
			return Endpoint{}, fmt.Errorf("validating routing type: %w: %v", ErrInvalidEndpoint, err)
		}
	}
	if err := update.TransformRules.Validate(); err != nil {
		return Endpoint{}, fmt.Errorf("validating transform rules: %w: %v", ErrInvalidEndpoint, err)
	}

	_, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	if err != nil {
		return Endpoint{}, err
	}

	changes := make(map[string]any)
	if update.Description != nil {
		endpoint.Description = *update.Description
		changes["description"] = endpoint.Description
	}
	if update.RoutingType != nil {
		endpoint.RoutingType = *update.RoutingType
		changes["routingType"] = endpoint.RoutingType.String()
	}
	if update.TargetURL != nil {
		endpoint.TargetURL = *update.TargetURL
		changes["targetUrl"] = endpoint.TargetURL
	}
	if update.AutomationURL != nil {
		endpoint.AutomationURL = *update.AutomationURL
		changes["automationUrl"] = endpoint.AutomationURL
	}
	if update.WorkflowID != nil {
		endpoint.WorkflowID = *update.WorkflowID
		changes["workflowId"] = endpoint.WorkflowID
	}
	if update.TransformRules != nil {
		endpoint.TransformRules = update.TransformRules
		changes["transformRules"] = update.TransformRules
	}
	if update.Enabled != nil {
		endpoint.Enabled = *update.Enabled
		changes["enabled"] = endpoint.Enabled
	}
	endpoint.UpdatedAt = time.Now().UTC()

	if err := s.Repo.UpdateEndpoint(ctx, endpoint); err != nil {
		return Endpoint{}, fmt.Errorf("updating endpoint: %w", err)
	}

	err = s.Repo.AppendAudit(ctx, AuditEntry{
		ID:          uuid.New().String(),
		ActorUserID: actor,
		Action:      AuditWebhookUpdate,
		EntityType:  "webhook",
		EntityID:    endpoint.ID,
		Details:     map[string]any{"projectKey": projectKey, "hookKey": hookKey, "changes": changes},
		CreatedAt:   endpoint.UpdatedAt,
	})
	if err != nil {
		return Endpoint{}, fmt.Errorf("appending audit log: %w", err)
	}

	return endpoint, nil
}

// RotateSecret replaces the endpoint secret and returns the new plaintext once
func (s *Service) RotateSecret(ctx context.Context, projectKey, hookKey, actor string) (string, error) {
	_, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	if err != nil {
		return "", err
	}

	generated, err := secret.New(s.SecretCost)
	if err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	if err := s.Repo.UpdateSecretHash(ctx, endpoint.ID, generated.Hash); err != nil {
		return "", fmt.Errorf("updating secret: %w", err)
	}

	err = s.Repo.AppendAudit(ctx, AuditEntry{
		ID:          uuid.New().String(),
		ActorUserID: actor,
		Action:      AuditWebhookRotateSecret,
		EntityType:  "webhook",
		EntityID:    endpoint.ID,
		Details:     map[string]any{"projectKey": projectKey, "hookKey": hookKey},
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("appending audit log: %w", err)
	}

	return generated.Plain, nil
}

// GetEndpoint returns one endpoint of a project
func (s *Service) GetEndpoint(ctx context.Context, projectKey, hookKey string) (Endpoint, error) {
	_, endpoint, err := s.resolve(ctx, projectKey, hookKey)
	return endpoint, err
}

// ListEndpoints returns every endpoint of a project
func (s *Service) ListEndpoints(ctx context.Context, projectKey string) ([]Endpoint, error) {
	project, err := s.Repo.FindProject(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	endpoints, err := s.Repo.ListEndpoints(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	return endpoints, nil
}

// resolve finds the project and the endpoint. Both misses look the same to the caller.
func (s *Service) resolve(ctx context.Context, projectKey, hookKey string) (Project, Endpoint, error) {
	project, err := s.Repo.FindProject(ctx, projectKey)
	if errors.Is(err, ErrNotFound) {
		return Project{}, Endpoint{}, errWebhookNotFound
	}
	if err != nil {
		return Project{}, Endpoint{}, fmt.Errorf("finding project: %w", err)
	}

	endpoint, err := s.Repo.FindEndpoint(ctx, project.ID, hookKey)
	if errors.Is(err, ErrNotFound) {
		return Project{}, Endpoint{}, errWebhookNotFound
	}
	if err != nil {
		return Project{}, Endpoint{}, fmt.Errorf("finding endpoint: %w", err)
	}
	return project, endpoint, nil
}

// SanitizeHeaders lower-cases header names and drops the shared secret and credentials
func SanitizeHeaders(headers map[string]string) map[string]string {
	clean := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.ToLower(k)
		if key == secret.Header || key == "authorization" {
			continue
		}
		clean[key] = v
	}
	return clean
}

func copyHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}

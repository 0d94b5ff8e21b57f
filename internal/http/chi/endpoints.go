package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/transform"
)

/* HTTP layer DTOs for the management API
 * Separate from domain entities so the secret hash never leaves the service
 */

// endpointRequest is the body of POST /v1/projects/{projectKey}/webhooks
type endpointRequest struct {
	HookKey        string              `json:"hookKey"`
	Description    string              `json:"description"`
	RoutingType    webhook.RoutingType `json:"routingType"`
	TargetURL      string              `json:"targetUrl"`
	AutomationURL  string              `json:"automationUrl"`
	WorkflowID     string              `json:"workflowId"`
	TransformRules *transform.Rules    `json:"transformRules"`
	Enabled        *bool               `json:"enabled"`
}

// endpointUpdateRequest is the body of PATCH /v1/projects/{projectKey}/webhooks/{hookKey}, absent fields are kept
type endpointUpdateRequest struct {
	Description    *string              `json:"description"`
	RoutingType    *webhook.RoutingType `json:"routingType"`
	TargetURL      *string              `json:"targetUrl"`
	AutomationURL  *string              `json:"automationUrl"`
	WorkflowID     *string              `json:"workflowId"`
	TransformRules *transform.Rules     `json:"transformRules"`
	Enabled        *bool                `json:"enabled"`
}

type endpointResponse struct {
	ID             string              `json:"id"`
	HookKey        string              `json:"hookKey"`
	Description    string              `json:"description"`
	Enabled        bool                `json:"enabled"`
	RoutingType    webhook.RoutingType `json:"routingType"`
	TargetURL      string              `json:"targetUrl,omitempty"`
	AutomationURL  string              `json:"automationUrl,omitempty"`
	WorkflowID     string              `json:"workflowId,omitempty"`
	TransformRules *transform.Rules    `json:"transformRules"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

type createEndpointResponse struct {
	Webhook endpointResponse `json:"webhook"`
	// Secret is shown once, only its hash is stored
	Secret string `json:"secret"`
}

type secretResponse struct {
	Secret string `json:"secret"`
}

func toEndpointResponse(e webhook.Endpoint) endpointResponse {
	return endpointResponse{
		ID:             e.ID,
		HookKey:        e.HookKey,
		Description:    e.Description,
		Enabled:        e.Enabled,
		RoutingType:    e.RoutingType,
		TargetURL:      e.TargetURL,
		AutomationURL:  e.AutomationURL,
		WorkflowID:     e.WorkflowID,
		TransformRules: e.TransformRules,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func postEndpoint(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req endpointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		endpoint, plain, err := service.CreateEndpoint(r.Context(), chi.URLParam(r, "projectKey"), webhook.EndpointInput{
			HookKey:        req.HookKey,
			Description:    req.Description,
			RoutingType:    req.RoutingType,
			TargetURL:      req.TargetURL,
			AutomationURL:  req.AutomationURL,
			WorkflowID:     req.WorkflowID,
			TransformRules: req.TransformRules,
			Enabled:        req.Enabled,
		}, actorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, createEndpointResponse{
			Webhook: toEndpointResponse(endpoint),
			Secret:  plain,
		})
	})
}

func getEndpoints(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoints, err := service.ListEndpoints(r.Context(), chi.URLParam(r, "projectKey"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		responses := make([]endpointResponse, 0, len(endpoints))
		for _, e := range endpoints {
			responses = append(responses, toEndpointResponse(e))
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

func getEndpoint(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint, err := service.GetEndpoint(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toEndpointResponse(endpoint))
	})
}

func patchEndpoint(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req endpointUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		endpoint, err := service.UpdateEndpoint(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"), webhook.EndpointUpdate{
			Description:    req.Description,
			RoutingType:    req.RoutingType,
			TargetURL:      req.TargetURL,
			AutomationURL:  req.AutomationURL,
			WorkflowID:     req.WorkflowID,
			TransformRules: req.TransformRules,
			Enabled:        req.Enabled,
		}, actorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toEndpointResponse(endpoint))
	})
}

func postRotateSecret(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plain, err := service.RotateSecret(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"), actorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, secretResponse{Secret: plain})
	})
}

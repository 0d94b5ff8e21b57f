package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-router/webhook"
)

// ActorHeader identifies the dashboard user behind a management call.
// Authentication happens upstream, this service only records who acted.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

// errorResponse is the body of every failed call
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors to HTTP statuses, unexpected errors are logged and hidden
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger := httplog.LogEntry(r.Context())
		logger.Error().Err(err).Msg("request failed")
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, webhook.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, webhook.ErrEndpointDisabled), errors.Is(err, webhook.ErrInvalidSecret):
		return http.StatusForbidden
	case errors.Is(err, webhook.ErrConflict), errors.Is(err, webhook.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, webhook.ErrInvalidEndpoint):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requireActor rejects management calls that do not name their actor
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(ActorHeader)
		if actor == "" {
			writeMessage(w, http.StatusUnauthorized, ActorHeader+" header is required")
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

package chi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-router/webhook"
)

type eventsResponse struct {
	Events []webhook.DeliveryEvent `json:"events"`
	Total  int                     `json:"total"`
}

// getEvents handles GET .../{hookKey}/events?status=&limit=&offset=
func getEvents(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		var filter webhook.EventFilter
		if s := query.Get("status"); s != "" {
			filter.Status = webhook.NewStatus(strings.ToUpper(s))
			if err := filter.Status.Validate(); err != nil {
				writeMessage(w, http.StatusBadRequest, "unknown status: "+s)
				return
			}
		}
		var err error
		if filter.Limit, err = intParam(query.Get("limit")); err != nil {
			writeMessage(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		if filter.Offset, err = intParam(query.Get("offset")); err != nil {
			writeMessage(w, http.StatusBadRequest, "offset must be a number")
			return
		}

		events, total, err := service.ListEvents(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, eventsResponse{Events: events, Total: total})
	})
}

func getEvent(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := service.GetEvent(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"), chi.URLParam(r, "eventId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	})
}

// postReplay answers once the replayed event reached its terminal state
func postReplay(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := service.Replay(r.Context(), chi.URLParam(r, "projectKey"), chi.URLParam(r, "hookKey"), chi.URLParam(r, "eventId"), actorFrom(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

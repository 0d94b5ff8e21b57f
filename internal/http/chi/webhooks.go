package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/secret"
)

// maxBodyBytes caps inbound webhook payloads
const maxBodyBytes = 5 << 20

// postWebhook handles POST /webhooks/{projectKey}/{hookKey}
func postWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeMessage(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		body = bytes.TrimSpace(body)
		if len(body) > 0 && !json.Valid(body) {
			writeMessage(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}

		receipt, err := service.Receive(r.Context(), webhook.ReceiveRequest{
			ProjectKey: chi.URLParam(r, "projectKey"),
			HookKey:    chi.URLParam(r, "hookKey"),
			Headers:    flattenHeaders(r.Header),
			Body:       body,
			Origin:     clientIP(r),
			Secret:     r.Header.Get(secret.Header),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, receipt)
	})
}

// flattenHeaders keeps every value of repeated headers, comma separated
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			headers[key] = strings.Join(values, ", ")
		}
	}
	return headers
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/go-chi/httprate"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/rs/zerolog"
)

const (
	defaultRateLimit = 100
	defaultTimeout   = 30 * time.Second
)

// Options carries the collaborators mounted by Handlers
type Options struct {
	Service webhook.UseCase
	// Realtime serves the websocket channel, nil disables /v1/realtime
	Realtime http.Handler
	// Metrics serves the Prometheus scrape endpoint, nil disables /metrics
	Metrics http.Handler
	// Stats serves collected metrics as JSON, nil disables /v1/stats
	Stats http.Handler
	// RateLimit is the number of inbound webhook calls allowed per IP and minute
	RateLimit int
	Timeout   time.Duration
	// CORSOrigins lets browser dashboards call the management API, empty sends no CORS headers
	CORSOrigins []string
}

// Handlers sets up the public receiver, the management API and the realtime channel
func Handlers(logger zerolog.Logger, opts Options) *chi.Mux {
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Long lived connections stay out of the timeout group
	if opts.Realtime != nil {
		r.Method(http.MethodGet, "/v1/realtime", opts.Realtime)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.Timeout))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})
		if opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", opts.Metrics)
		}
		if opts.Stats != nil {
			r.Method(http.MethodGet, "/v1/stats", opts.Stats)
		}

		r.With(httprate.LimitByIP(opts.RateLimit, time.Minute)).
			Method(http.MethodPost, "/webhooks/{projectKey}/{hookKey}", postWebhook(opts.Service))

		r.Route("/v1/projects/{projectKey}/webhooks", func(r chi.Router) {
			if len(opts.CORSOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: opts.CORSOrigins,
					AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
					AllowedHeaders: []string{"Accept", "Content-Type", ActorHeader},
					MaxAge:         300,
				}))
			}
			r.Use(requireActor)

			r.Method(http.MethodPost, "/", postEndpoint(opts.Service))
			r.Method(http.MethodGet, "/", getEndpoints(opts.Service))
			r.Method(http.MethodGet, "/{hookKey}", getEndpoint(opts.Service))
			r.Method(http.MethodPatch, "/{hookKey}", patchEndpoint(opts.Service))
			r.Method(http.MethodPost, "/{hookKey}/rotate-secret", postRotateSecret(opts.Service))
			r.Method(http.MethodGet, "/{hookKey}/events", getEvents(opts.Service))
			r.Method(http.MethodGet, "/{hookKey}/events/{eventId}", getEvent(opts.Service))
			r.Method(http.MethodPost, "/{hookKey}/events/{eventId}/replay", postReplay(opts.Service))
		})
	})

	return r
}

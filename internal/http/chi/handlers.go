package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
)

// HealthCache answers health checks and exposes cached entries
type HealthCache interface {
	health.Checker
	Peek(ctx context.Context, id string) (health.Entry, bool)
}

// Dependencies are the services the HTTP layer routes to
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Relay     relay.UseCase
	Prober    health.Prober
	Health    HealthCache
	Endpoints *endpoint.Registry
	Validator *endpoint.Validator
	Metrics   http.Handler
}

// Handlers sets up the relay API routes
func Handlers(ctx context.Context, deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	// relays may legitimately take up to the relay deadline
	r.Use(middleware.Timeout(deps.Config.RelayTimeout() + 5*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.CORSOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", secretHeader},
		MaxAge:         300,
	}))

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhook", postWebhook(deps).ServeHTTP)
		r.Post("/test-webhook", postTestWebhook(deps).ServeHTTP)

		r.Get("/health-check", getHealthCheck(deps).ServeHTTP)
		r.Post("/health-check", postHealthCheck(deps).ServeHTTP)

		r.Get("/endpoints", getEndpoints(deps).ServeHTTP)
		r.Get("/endpoints/{id}/health", getEndpointHealth(deps).ServeHTTP)
	})

	return r
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out, nothing useful to do with an encoding error
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

package chi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/segmentio/encoding/json"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusError     = "error"
)

// healthCheckQuery is decoded from GET /api/health-check
type healthCheckQuery struct {
	WebhookURL string `schema:"webhookUrl"`
	APISecret  string `schema:"apiSecret"`
}

// healthCheckRequest is the body of POST /api/health-check
type healthCheckRequest struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

type healthCheckResponse struct {
	Status string       `json:"status"`
	Checks healthChecks `json:"checks"`
}

type healthChecks struct {
	API        string    `json:"api"`
	N8NWebhook string    `json:"n8nWebhook"`
	Timestamp  time.Time `json:"timestamp"`
}

type endpointResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	HasSecret bool            `json:"hasSecret"`
	Health    *endpointHealth `json:"health,omitempty"`
}

type endpointHealth struct {
	Healthy      bool      `json:"healthy"`
	FailureCount int       `json:"failureCount"`
	CheckedAt    time.Time `json:"checkedAt"`
}

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

// getHealthCheck handles GET /api/health-check
// Without parameters the default endpoint is checked through the cache.
func getHealthCheck(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q healthCheckQuery
		if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
			writeHealthCheck(w, http.StatusBadRequest, statusError, "invalid query parameters")
			return
		}

		if q.WebhookURL == "" {
			ep, err := deps.Endpoints.Get(endpoint.DefaultID)
			if err != nil {
				writeHealthCheck(w, http.StatusInternalServerError, statusError, "not configured")
				return
			}
			if q.APISecret != "" {
				ep.Secret = q.APISecret
				writeVerdict(w, deps.Prober.Probe(r.Context(), health.Target{URL: ep.URL, Secret: ep.Secret}).Healthy)
				return
			}
			writeVerdict(w, deps.Health.Check(r.Context(), ep))
			return
		}

		secret := q.APISecret
		if secret == "" {
			// an omitted apiSecret falls back to the default endpoint, like webhookUrl
			if def, err := deps.Endpoints.Get(endpoint.DefaultID); err == nil {
				secret = def.Secret
			}
		}
		ep, status, err := resolveTarget(deps, q.WebhookURL, secret)
		if err != nil {
			writeHealthCheck(w, status, statusError, err.Error())
			return
		}
		writeVerdict(w, deps.Prober.Probe(r.Context(), health.Target{URL: ep.URL, Secret: ep.Secret}).Healthy)
	})
}

func writeVerdict(w http.ResponseWriter, healthy bool) {
	if healthy {
		writeHealthCheck(w, http.StatusOK, statusHealthy, statusHealthy)
		return
	}
	writeHealthCheck(w, http.StatusServiceUnavailable, statusUnhealthy, statusUnhealthy)
}

func writeHealthCheck(w http.ResponseWriter, code int, status, webhook string) {
	writeJSON(w, code, healthCheckResponse{
		Status: status,
		Checks: healthChecks{
			API:        "ok",
			N8NWebhook: webhook,
			Timestamp:  time.Now().UTC(),
		},
	})
}

// postHealthCheck handles POST /api/health-check, an on-demand probe
func postHealthCheck(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in healthCheckRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, probeResponse{Status: statusError, Message: "invalid request body", Timestamp: time.Now().UTC()})
			return
		}

		secret := in.Secret
		ep, status, err := resolveTarget(deps, in.URL, secret)
		if err != nil {
			writeJSON(w, status, probeResponse{Status: statusError, Message: err.Error(), Timestamp: time.Now().UTC()})
			return
		}
		if in.URL == "" && secret != "" {
			ep.Secret = secret
		}

		v := deps.Prober.Probe(r.Context(), health.Target{URL: ep.URL, Secret: ep.Secret})
		writeJSON(w, http.StatusOK, newProbeResponse(v))
	})
}

// getEndpoints handles GET /api/endpoints, reporting cached health only
func getEndpoints(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		all := deps.Endpoints.List()

		responses := make([]endpointResponse, 0, len(all))
		for _, ep := range all {
			resp := endpointResponse{
				ID:        ep.ID,
				Name:      ep.Name,
				URL:       ep.URL,
				HasSecret: ep.HasSecret(),
			}
			if e, found := deps.Health.Peek(r.Context(), ep.ID); found {
				resp.Health = &endpointHealth{
					Healthy:      e.Result,
					FailureCount: e.FailureCount,
					CheckedAt:    e.Timestamp,
				}
			}
			responses = append(responses, resp)
		}

		writeJSON(w, http.StatusOK, responses)
	})
}

// getEndpointHealth handles GET /api/endpoints/{id}/health through the cache
func getEndpointHealth(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ep, err := deps.Endpoints.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		healthy := deps.Health.Check(r.Context(), ep)

		resp := endpointResponse{ID: ep.ID, Name: ep.Name, URL: ep.URL, HasSecret: ep.HasSecret()}
		if e, found := deps.Health.Peek(r.Context(), ep.ID); found {
			resp.Health = &endpointHealth{Healthy: healthy, FailureCount: e.FailureCount, CheckedAt: e.Timestamp}
		} else {
			resp.Health = &endpointHealth{Healthy: healthy}
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

package chi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/health"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/segmentio/encoding/json"
)

const (
	secretHeader = "X-Webhook-Secret"

	// maxPayloadBytes leaves room for base64 file attachments
	maxPayloadBytes = 20 << 20

	testMessage = "This is a test message from webhook-relay"
)

/* HTTP layer DTOs for the relay API
 * Separate from domain types to avoid leaking internal structure
 */

// testWebhookRequest is the body of POST /api/test-webhook
type testWebhookRequest struct {
	URL         string `json:"url"`
	Secret      string `json:"secret"`
	HealthCheck bool   `json:"healthCheck"`
}

// probeResponse reports an on-demand probe
type probeResponse struct {
	Success    bool      `json:"success"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// postWebhook handles POST /api/webhook[?endpoint=id]
func postWebhook(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("endpoint")
		if id == "" {
			id = endpoint.DefaultID
		}
		httplog.LogEntrySetField(r.Context(), "endpoint_id", id)

		ep, err := deps.Endpoints.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		res := deps.Relay.Send(r.Context(), ep, r.Header.Get(secretHeader), body)
		writeJSON(w, statusFor(res), res)
	})
}

// postTestWebhook handles POST /api/test-webhook
// A url in the body is caller-supplied and must pass the allow-list.
func postTestWebhook(deps Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in testWebhookRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ep, status, err := resolveTarget(deps, in.URL, in.Secret)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}

		if in.HealthCheck {
			v := deps.Prober.Probe(r.Context(), health.Target{URL: ep.URL, Secret: ep.Secret})
			writeJSON(w, http.StatusOK, newProbeResponse(v))
			return
		}

		res := deps.Relay.SendRequest(r.Context(), ep, in.Secret, testRequest())
		writeJSON(w, statusFor(res), res)
	})
}

// resolveTarget validates a caller-supplied url, or falls back to the default endpoint
func resolveTarget(deps Dependencies, rawURL, secret string) (endpoint.Endpoint, int, error) {
	if rawURL == "" {
		ep, err := deps.Endpoints.Get(endpoint.DefaultID)
		if err != nil {
			return endpoint.Endpoint{}, http.StatusInternalServerError, errors.New("default webhook URL is not configured")
		}
		return ep, 0, nil
	}

	canonical, err := deps.Validator.ValidateUserSupplied(rawURL)
	if err != nil {
		if errors.Is(err, endpoint.ErrDomainNotAllowed) {
			return endpoint.Endpoint{}, http.StatusForbidden, err
		}
		return endpoint.Endpoint{}, http.StatusBadRequest, err
	}
	return endpoint.Endpoint{ID: "user-supplied", Name: "user-supplied", URL: canonical, Secret: secret}, 0, nil
}

func testRequest() relay.Request {
	return relay.Request{
		SessionID: "test-session-" + uuid.NewString(),
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		User:      relay.User{ID: "webhook-test", Name: "Webhook Test"},
		Message:   relay.Message{Type: relay.Text, Content: testMessage},
	}
}

func newProbeResponse(v health.Verdict) probeResponse {
	status := "unhealthy"
	if v.Healthy {
		status = "healthy"
	}
	return probeResponse{
		Success:    v.Healthy,
		Status:     status,
		Message:    v.Message,
		StatusCode: v.StatusCode,
		Timestamp:  v.CheckedAt,
	}
}

// statusFor maps a relay outcome to the HTTP status of the response.
// Endpoint URLs reaching the relay were validated already, so a bad one is a server fault.
func statusFor(res relay.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorCode {
	case relay.CodeMalformedPayload:
		return http.StatusBadRequest
	case relay.CodeUnauthorized:
		return http.StatusUnauthorized
	case relay.CodeDomainNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

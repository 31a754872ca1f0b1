package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/marcelsud/webhook-relay/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeHealthCheck(t *testing.T, w *httptest.ResponseRecorder) healthCheckResponse {
	t.Helper()
	var resp healthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetHealthCheck(t *testing.T) {
	t.Run("success - default endpoint goes through the cache", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, health.Target{URL: defaultURL, Secret: "s3cret"}).
			Return(health.Verdict{Healthy: true}).Once()

		for range 3 {
			w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			resp := decodeHealthCheck(t, w)
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, "ok", resp.Checks.API)
			assert.Equal(t, "healthy", resp.Checks.N8NWebhook)
			assert.False(t, resp.Checks.Timestamp.IsZero())
		}
	})

	t.Run("success - unhealthy is 503", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, mock.Anything).Return(health.Verdict{Message: "Webhook is unreachable"}).Once()

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decodeHealthCheck(t, w).Status)
	})

	t.Run("success - query parameters override the defaults", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, health.Target{URL: "https://n8n.ml1.app/webhook/other", Secret: "k"}).
			Return(health.Verdict{Healthy: true}).Once()

		q := url.Values{"webhookUrl": {"https://n8n.ml1.app/webhook/other"}, "apiSecret": {"k"}, "extra": {"ignored"}}
		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("success - omitted apiSecret falls back to the default secret", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, health.Target{URL: "https://n8n.ml1.app/webhook/other", Secret: "s3cret"}).
			Return(health.Verdict{Healthy: true}).Once()

		q := url.Values{"webhookUrl": {"https://n8n.ml1.app/webhook/other"}}
		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("success - URL without apiSecret and no default goes out unauthenticated", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, false)
		prober.On("Probe", mock.Anything, health.Target{URL: "https://n8n.ml1.app/webhook/other"}).
			Return(health.Verdict{Healthy: true}).Once()

		q := url.Values{"webhookUrl": {"https://n8n.ml1.app/webhook/other"}}
		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check?"+q.Encode(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error - query URL off the allow-list", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)

		q := url.Values{"webhookUrl": {"http://169.254.169.254/latest/meta-data"}}
		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check?"+q.Encode(), nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "error", decodeHealthCheck(t, w).Status)
		prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	})

	t.Run("error - nothing configured", func(t *testing.T) {
		deps, _, _ := newTestDeps(t, false)

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/health-check", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "error", decodeHealthCheck(t, w).Status)
	})
}

func TestPostHealthCheck(t *testing.T) {
	t.Run("success - probes the given URL", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, health.Target{URL: "https://n8n.ml1.app/webhook/x", Secret: "k"}).
			Return(health.Verdict{StatusCode: 404, Message: "Webhook responded with status 404"}).Once()

		body := `{"url":"https://n8n.ml1.app/webhook/x","secret":"k"}`
		w := serve(t, deps, httptest.NewRequest(http.MethodPost, "/api/health-check", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp probeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "Webhook responded with status 404", resp.Message)
	})

	t.Run("success - defaults when the body is empty", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, health.Target{URL: defaultURL, Secret: "s3cret"}).
			Return(health.Verdict{Healthy: true}).Once()

		w := serve(t, deps, httptest.NewRequest(http.MethodPost, "/api/health-check", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error - URL off the allow-list", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)

		body := `{"url":"https://evil.example.com/hook"}`
		w := serve(t, deps, httptest.NewRequest(http.MethodPost, "/api/health-check", strings.NewReader(body)))

		assert.Equal(t, http.StatusForbidden, w.Code)
		prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	})
}

func TestEndpoints(t *testing.T) {
	t.Run("list hides secrets and shows cached health", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, mock.Anything).Return(health.Verdict{}).Once()

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/endpoints/support/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		w = serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/endpoints", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "s3cret")

		var list []endpointResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list, 2)
		assert.Equal(t, "default", list[0].ID)
		assert.True(t, list[0].HasSecret)
		assert.Nil(t, list[0].Health)
		assert.Equal(t, "support", list[1].ID)
		require.NotNil(t, list[1].Health)
		assert.False(t, list[1].Health.Healthy)
		assert.Equal(t, 1, list[1].Health.FailureCount)
	})

	t.Run("health of a known endpoint is cached", func(t *testing.T) {
		deps, _, prober := newTestDeps(t, true)
		prober.On("Probe", mock.Anything, mock.Anything).Return(health.Verdict{Healthy: true}).Once()

		for range 2 {
			w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/endpoints/default/health", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		deps, _, _ := newTestDeps(t, true)

		w := serve(t, deps, httptest.NewRequest(http.MethodGet, "/api/endpoints/nope/health", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

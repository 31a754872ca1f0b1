package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/normalize"
	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	UserAgent    = "webhook-relay/1.0"
	SecretHeader = "X-Webhook-Secret"

	// MaxBodyBytes bounds how much of a response is read
	MaxBodyBytes = 1 << 20

	tracerName = "github.com/marcelsud/webhook-relay/relay/httpclient"
)

/* Client performs exactly one POST per call, no retries
 * Every call runs under its own deadline so expiry cancels the socket
 */
type Client struct {
	HTTPClient *http.Client
	tracer     trace.Tracer
}

// Ensure Client implements relay.Sender
var _ relay.Sender = (*Client)(nil)

// New creates a client using the global tracer provider
func New() *Client {
	return &Client{
		HTTPClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
	}
}

// Deadline returns d, or the default relay timeout when d is unset or above the maximum.
// Sub-second values are kept: config already drops relay overrides below MinTimeoutMs,
// and the health-check deadline is half of the override, so it can be under 1s.
func Deadline(d time.Duration) time.Duration {
	if d <= 0 || d > config.MaxTimeoutMs*time.Millisecond {
		return config.DefaultRelayTimeout
	}
	return d
}

// Post sends out.Body as JSON to out.URL
func (c *Client) Post(ctx context.Context, out relay.Outbound) (relay.Response, error) {
	ctx, span := c.tracer.Start(ctx, "webhook.post",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodPost),
			attribute.String("url.full", out.URL),
			attribute.Bool("webhook.authenticated", out.Secret != ""),
		),
	)
	defer span.End()

	resp, err := c.post(ctx, out)
	if resp.Status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	}
	if err != nil {
		var upstream *relay.UpstreamError
		if errors.As(err, &upstream) {
			span.SetAttributes(attribute.Int("http.response.status_code", upstream.Status))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Client) post(ctx context.Context, out relay.Outbound) (relay.Response, error) {
	payload, err := json.Marshal(out.Body)
	if err != nil {
		return relay.Response{}, fmt.Errorf("%w: encoding body: %v", relay.ErrMalformedPayload, err)
	}

	ctx, cancel := context.WithTimeout(ctx, Deadline(out.Timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, out.URL, bytes.NewReader(payload))
	if err != nil {
		return relay.Response{}, fmt.Errorf("%w: building request: %v", relay.ErrUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if out.Secret != "" {
		req.Header.Set(SecretHeader, out.Secret)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return relay.Response{}, classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return relay.Response{}, classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return relay.Response{}, &relay.UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}

	return relay.Response{
		Status: resp.StatusCode,
		Body:   parseBody(resp.Header.Get("Content-Type"), data),
	}, nil
}

// classify maps transport failures onto ErrTimeout or ErrUnreachable
func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case ctx.Err() != nil,
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", relay.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", relay.ErrUnreachable, err)
	}
}

// parseBody falls back to text when a JSON content type carries an unparsable body
func parseBody(contentType string, data []byte) normalize.Value {
	if isJSON(contentType) {
		if v, err := normalize.Parse(data); err == nil {
			return v
		}
	}
	return normalize.Text(string(data))
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

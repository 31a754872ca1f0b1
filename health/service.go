package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/rs/zerolog"
)

// ProbeMessage is the sentinel body sent to webhooks on a health probe
const ProbeMessage = "__health_check__"

// Target is what gets probed
type Target struct {
	URL          string
	Secret       string
	SkipExternal bool
}

// Verdict is the outcome of one probe. Probes never fail, they report.
type Verdict struct {
	Healthy    bool      `json:"healthy"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// Prober checks whether a webhook is reachable
type Prober interface {
	Probe(ctx context.Context, target Target) Verdict
}

type probeBody struct {
	Message string `json:"message"`
}

/* Service probes webhooks through the relay client
 * With external checks skipped only the URL format is verified and no traffic is sent
 */
type Service struct {
	Sender       relay.Sender
	timeout      time.Duration
	skipExternal bool
	logger       zerolog.Logger
	now          func() time.Time
}

// Ensure Service implements Prober
var _ Prober = (*Service)(nil)

// NewService creates a probe service with dependency injection
func NewService(cfg *config.Config, sender relay.Sender, logger zerolog.Logger) *Service {
	return &Service{
		Sender:       sender,
		timeout:      cfg.ProbeTimeout(),
		skipExternal: cfg.SkipExternalChecks,
		logger:       logger,
		now:          time.Now,
	}
}

// Probe checks target, forcing format-only mode when configured
func (s *Service) Probe(ctx context.Context, target Target) Verdict {
	v := s.probe(ctx, target)
	v.CheckedAt = s.now().UTC()

	s.logger.Debug().
		Str("url", target.URL).
		Bool("healthy", v.Healthy).
		Int("status", v.StatusCode).
		Str("reason", v.Message).
		Msg("webhook probed")
	return v
}

func (s *Service) probe(ctx context.Context, target Target) Verdict {
	if !endpoint.IsAbsolute(target.URL) {
		return Verdict{Message: "Invalid webhook URL"}
	}
	if target.SkipExternal || s.skipExternal {
		return Verdict{Healthy: true, Message: "URL format is valid (external check skipped)"}
	}

	resp, err := s.Sender.Post(ctx, relay.Outbound{
		URL:     target.URL,
		Secret:  target.Secret,
		Body:    probeBody{Message: ProbeMessage},
		Timeout: s.timeout,
	})
	if err != nil {
		return failure(err)
	}
	return Verdict{Healthy: true, StatusCode: resp.Status, Message: "Webhook is reachable"}
}

func failure(err error) Verdict {
	var upstream *relay.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return Verdict{
			StatusCode: upstream.Status,
			Message:    fmt.Sprintf("Webhook responded with status %d", upstream.Status),
		}
	case errors.Is(err, relay.ErrTimeout):
		return Verdict{Message: "Webhook health check timed out"}
	default:
		return Verdict{Message: "Webhook is unreachable"}
	}
}

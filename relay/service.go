package relay

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/endpoint"
	"github.com/marcelsud/webhook-relay/relay/normalize"
	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
)

const (
	msgDeliveryFailed = "Failed to deliver message to the webhook"
	msgAuthFailed     = "Webhook authentication failed, check the configured secret"
	msgAccessDenied   = "Access to the webhook was denied"
	msgNotFound       = "Webhook not found or the workflow is not active"

	maxDiagnosticLen = 512
)

// UseCase defines the relay operations
type UseCase interface {
	Send(ctx context.Context, ep endpoint.Endpoint, presentedSecret string, payload []byte) Result
	SendRequest(ctx context.Context, ep endpoint.Endpoint, presentedSecret string, req Request) Result
}

// Recorder receives one observation per relay attempt
type Recorder interface {
	RecordRelay(ctx context.Context, endpointID string, code Code, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRelay(context.Context, string, Code, time.Duration) {}

/* Service runs Validating -> Authenticating -> Sending -> Normalizing
 * It holds no per-call state and is safe for concurrent use
 */
type Service struct {
	Sender    Sender
	Validator *endpoint.Validator
	Timeout   time.Duration
	Recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a relay service with dependency injection
func NewService(cfg *config.Config, sender Sender, validator *endpoint.Validator, logger zerolog.Logger) *Service {
	return &Service{
		Sender:    sender,
		Validator: validator,
		Timeout:   cfg.RelayTimeout(),
		Recorder:  nopRecorder{},
		logger:    logger,
		now:       time.Now,
	}
}

// Send decodes a raw payload and relays it.
// presentedSecret is the caller's X-Webhook-Secret header, possibly empty.
func (s *Service) Send(ctx context.Context, ep endpoint.Endpoint, presentedSecret string, payload []byte) Result {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return s.finish(ctx, ep, req, time.Now(), s.failLocal(req, fmt.Errorf("%w: %v", ErrMalformedPayload, err)))
	}
	return s.SendRequest(ctx, ep, presentedSecret, req)
}

// SendRequest relays an already decoded request
func (s *Service) SendRequest(ctx context.Context, ep endpoint.Endpoint, presentedSecret string, req Request) Result {
	start := time.Now()
	return s.finish(ctx, ep, req, start, s.relay(ctx, ep, presentedSecret, req))
}

func (s *Service) relay(ctx context.Context, ep endpoint.Endpoint, presentedSecret string, req Request) Result {
	// validating
	if err := req.Validate(); err != nil {
		return s.failLocal(req, err)
	}
	target, err := s.Validator.ValidateOperator(ep.URL)
	if err != nil {
		return s.failLocal(req, fmt.Errorf("validating endpoint %s: %w", ep.ID, err))
	}

	// authenticating
	if err := authenticate(ep, presentedSecret, req); err != nil {
		return s.failLocal(req, err)
	}

	// sending
	resp, err := s.Sender.Post(ctx, Outbound{
		URL:     target,
		Secret:  ep.Secret,
		Body:    req.withoutSecret(),
		Timeout: s.Timeout,
	})
	if err != nil {
		return s.failRemote(req, err)
	}

	// normalizing
	res := Result{
		Success:    true,
		MessageID:  req.MessageID,
		Timestamp:  s.now().UTC(),
		HTTPStatus: resp.Status,
	}
	if text, ok := normalize.Extract(resp.Body); ok {
		res.BotMessage = &BotMessage{
			Content:  text,
			Type:     Text,
			Metadata: Metadata{OriginalResponse: resp.Body},
		}
	}
	return res
}

// authenticate compares the presented secret in constant time.
// The header wins over a secret embedded in the payload context.
func authenticate(ep endpoint.Endpoint, presented string, req Request) error {
	if !ep.HasSecret() {
		return nil
	}
	if presented == "" {
		presented = req.PresentedSecret()
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(ep.Secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) failLocal(req Request, err error) Result {
	return Result{
		MessageID:  req.MessageID,
		Timestamp:  s.now().UTC(),
		Error:      err.Error(),
		ErrorCode:  CodeOf(err),
		Diagnostic: err.Error(),
	}
}

func (s *Service) failRemote(req Request, err error) Result {
	res := Result{
		MessageID:  req.MessageID,
		Timestamp:  s.now().UTC(),
		Error:      msgDeliveryFailed,
		ErrorCode:  CodeOf(err),
		Diagnostic: err.Error(),
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		res.HTTPStatus = upstream.Status
		res.Error = UpstreamMessage(upstream.Status)
		res.Diagnostic = truncate(fmt.Sprintf("%s: %s", upstream.Error(), upstream.Body), maxDiagnosticLen)
	}
	return res
}

// UpstreamMessage maps a webhook status to an operator-facing message
func UpstreamMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return msgAuthFailed
	case http.StatusForbidden:
		return msgAccessDenied
	case http.StatusNotFound:
		return msgNotFound
	default:
		return msgDeliveryFailed
	}
}

func (s *Service) finish(ctx context.Context, ep endpoint.Endpoint, req Request, start time.Time, res Result) Result {
	elapsed := time.Since(start)
	s.Recorder.RecordRelay(ctx, ep.ID, res.ErrorCode, elapsed)

	if res.Success {
		s.logger.Info().
			Object("endpoint", ep).
			Str("message_id", req.MessageID).
			Int("status", res.HTTPStatus).
			Bool("reply", res.BotMessage != nil).
			Dur("elapsed", elapsed).
			Msg("message relayed")
		return res
	}

	s.logger.Warn().
		Object("endpoint", ep).
		Str("message_id", req.MessageID).
		Str("code", res.ErrorCode.String()).
		Int("status", res.HTTPStatus).
		Str("diagnostic", res.Diagnostic).
		Dur("elapsed", elapsed).
		Msg("relay failed")
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package relay

import (
	"errors"
	"fmt"

	"github.com/marcelsud/webhook-relay/endpoint"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnauthorized     = errors.New("invalid webhook secret")
	ErrTimeout          = errors.New("webhook request timed out")
	ErrUnreachable      = errors.New("webhook unreachable")
)

// UpstreamError is a non-2xx answer from the webhook
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.Status)
}

/* Code classifies a failed relay for callers
 * The zero value means no error and is omitted from JSON
 */
type Code int

const (
	CodeNone Code = iota
	CodeMalformedPayload
	CodeUnauthorized
	CodeInvalidURL
	CodeUnsupportedScheme
	CodeDomainNotAllowed
	CodeTimeout
	CodeUnreachable
	CodeUpstream
)

// String returns the string representation of the code
func (c Code) String() string {
	switch c {
	case CodeNone:
		return ""
	case CodeMalformedPayload:
		return "malformed_payload"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeInvalidURL:
		return "invalid_url"
	case CodeUnsupportedScheme:
		return "unsupported_scheme"
	case CodeDomainNotAllowed:
		return "domain_not_allowed"
	case CodeTimeout:
		return "timeout"
	case CodeUnreachable:
		return "unreachable"
	case CodeUpstream:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// NewCode creates a Code from a string
func NewCode(str string) Code {
	for c := CodeMalformedPayload; c <= CodeUpstream; c++ {
		if c.String() == str {
			return c
		}
	}
	return CodeNone
}

func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	*c = NewCode(string(text))
	return nil
}

// CodeOf classifies err, CodeNone for nil
func CodeOf(err error) Code {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrMalformedPayload):
		return CodeMalformedPayload
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, endpoint.ErrInvalidURL):
		return CodeInvalidURL
	case errors.Is(err, endpoint.ErrUnsupportedScheme):
		return CodeUnsupportedScheme
	case errors.Is(err, endpoint.ErrDomainNotAllowed):
		return CodeDomainNotAllowed
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.As(err, &upstream):
		return CodeUpstream
	default:
		return CodeUnreachable
	}
}

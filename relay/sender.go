package relay

import (
	"context"
	"time"

	"github.com/marcelsud/webhook-relay/relay/normalize"
)

// Outbound is a single POST to a webhook
type Outbound struct {
	URL     string
	Secret  string
	Body    any
	Timeout time.Duration
}

// Response is a 2xx answer with its parsed body
type Response struct {
	Status int
	Body   normalize.Value
}

/* Sender performs the outbound call
 * Non-2xx answers are *UpstreamError, transport failures ErrTimeout or ErrUnreachable
 */
type Sender interface {
	Post(ctx context.Context, out Outbound) (Response, error)
}

package health

import (
	"context"
	"time"
)

/* Entry is the last known verdict for an endpoint
 * Success resets FailureCount, each failure increments it
 */
type Entry struct {
	Result       bool      `json:"result"`
	Timestamp    time.Time `json:"timestamp"`
	FailureCount int       `json:"failureCount"`
}

// Store keeps entries keyed by endpoint id. Entries are never deleted explicitly.
type Store interface {
	Get(ctx context.Context, id string) (Entry, bool, error)
	Set(ctx context.Context, id string, e Entry) error
}

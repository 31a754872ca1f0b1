package endpoint

import (
	"fmt"

	"github.com/rs/zerolog"
)

/* Endpoint represents one configured external webhook
 * Uses value semantics as it represents data, not behavior
 */
type Endpoint struct {
	ID     string
	Name   string
	URL    string
	Secret string // opaque, never logged
}

// HasSecret reports whether callers must authenticate against this endpoint
func (e Endpoint) HasSecret() bool {
	return e.Secret != ""
}

// String returns a printable form with the secret redacted
func (e Endpoint) String() string {
	secret := ""
	if e.HasSecret() {
		secret = " secret=[REDACTED]"
	}
	return fmt.Sprintf("%s(%s)%s", e.ID, e.URL, secret)
}

// MarshalZerologObject keeps the secret out of structured logs
func (e Endpoint) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", e.ID).
		Str("url", e.URL).
		Bool("has_secret", e.HasSecret())
}

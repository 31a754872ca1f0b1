package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	ErrDomainNotAllowed  = errors.New("domain not allowed")
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

/* Validator guards outbound calls against SSRF
 * Operator-configured URLs are trusted infrastructure and skip the allow-list,
 * user-supplied URLs must name an allowed host exactly
 */
type Validator struct {
	allowed map[string]struct{}
}

// NewValidator creates a validator for the given allow-list of hostnames
func NewValidator(allowedDomains []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed[d] = struct{}{}
		}
	}
	return &Validator{allowed: allowed}
}

// ValidateOperator validates a trusted, operator-configured URL
func (v *Validator) ValidateOperator(raw string) (string, error) {
	return v.validate(raw, false)
}

// ValidateUserSupplied validates a caller-supplied URL against the allow-list
func (v *Validator) ValidateUserSupplied(raw string) (string, error) {
	return v.validate(raw, true)
}

// AllowedDomains returns the configured allow-list
func (v *Validator) AllowedDomains() []string {
	out := make([]string, 0, len(v.allowed))
	for d := range v.allowed {
		out = append(out, d)
	}
	return out
}

func (v *Validator) validate(raw string, userSupplied bool) (string, error) {
	u, err := Canonical(raw)
	if err != nil {
		return "", err
	}
	if userSupplied {
		if _, ok := v.allowed[u.Hostname()]; !ok {
			return "", fmt.Errorf("%w: %s", ErrDomainNotAllowed, u.Hostname())
		}
	}
	return u.String(), nil
}

// Canonical parses raw as an absolute http(s) URL and normalizes it.
// The returned URL is the one that must be dispatched, never raw.
func Canonical(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == defaultPorts[u.Scheme] {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host = host + ":" + port
	}

	out := &url.URL{
		Scheme:   u.Scheme,
		User:     u.User,
		Host:     host,
		Path:     u.Path,
		RawPath:  u.RawPath,
		RawQuery: u.RawQuery,
	}
	if out.Path == "" {
		out.Path = "/"
		out.RawPath = ""
	}
	return out, nil
}

// IsAbsolute reports whether raw parses as an absolute URL of any scheme
func IsAbsolute(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && u.IsAbs()
}

package normalize

import (
	"regexp"
	"strings"
)

// replyFields are looked up, in order, on a JSON object embedded in a string body
var replyFields = []string{"message", "content", "text", "response", "data", "result"}

var (
	documentTagPattern = regexp.MustCompile(`(?i)<!DOCTYPE|<html[\s>]|<head[\s>]|<body[\s>]`)
	openTagPattern     = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	closeTagPattern    = regexp.MustCompile(`</([a-z][a-z0-9]*)>`)
	anyTagPattern      = regexp.MustCompile(`<[^>]*>`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#x27;", "'",
	)
)

/* Extract turns an untrusted response body into display text.
 * ok is false when there is nothing to show, which callers treat as
 * "delivered, no reply text" rather than an error.
 */
func Extract(body Value) (text string, ok bool) {
	candidate := body
	if body.kind == Array && len(body.items) > 0 {
		candidate = body.items[0]
	}

	switch candidate.kind {
	case String:
		return fromString(candidate.str)
	case Object, Array:
		return fromEntries(candidate)
	default:
		return "", false
	}
}

func fromString(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	if looksLikeJSON(trimmed) {
		if parsed, err := Parse([]byte(trimmed)); err == nil {
			if text, ok := replyField(parsed); ok {
				return text, true
			}
		}
	}

	return fromPlain(trimmed)
}

// replyField looks for a known reply key, or the first element of an array of strings
func replyField(v Value) (string, bool) {
	switch v.kind {
	case Object:
		for _, key := range replyFields {
			field, found := v.Get(key)
			if !found || field.kind != String {
				continue
			}
			if text := strings.TrimSpace(field.str); text != "" {
				return text, true
			}
		}
	case Array:
		if len(v.items) > 0 && v.items[0].kind == String {
			if text := strings.TrimSpace(v.items[0].str); text != "" {
				return text, true
			}
		}
	}
	return "", false
}

// fromEntries scans own string entries in order; arrays are scanned by index
func fromEntries(v Value) (string, bool) {
	var values []Value
	if v.kind == Object {
		for _, f := range v.fields {
			values = append(values, f.Value)
		}
	} else {
		values = v.items
	}

	for _, val := range values {
		if val.kind != String {
			continue
		}
		trimmed := strings.TrimSpace(val.str)
		if trimmed == "" {
			continue
		}
		if text, ok := fromPlain(trimmed); ok {
			return text, true
		}
	}
	return "", false
}

// fromPlain applies the HTML heuristic to an already trimmed, non-empty string
func fromPlain(trimmed string) (string, bool) {
	if !LooksLikeHTML(trimmed) {
		return trimmed, true
	}
	sanitized := strings.TrimSpace(Sanitize(trimmed))
	if sanitized == "" || LooksLikeHTML(sanitized) {
		return "", false
	}
	return sanitized, true
}

// LooksLikeHTML reports document tags or a matching open/close tag pair.
// Strings that start like JSON are never HTML.
func LooksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	if looksLikeJSON(s) {
		return false
	}
	if documentTagPattern.MatchString(s) {
		return true
	}

	lower := strings.ToLower(s)
	closers := lastClosingTags(lower)
	if len(closers) == 0 {
		return false
	}
	for _, m := range openTagPattern.FindAllStringSubmatchIndex(lower, -1) {
		if at, ok := closers[lower[m[2]:m[3]]]; ok && at >= m[1] {
			return true
		}
	}
	return false
}

// lastClosingTags maps each closing tag name to the offset of its rightmost occurrence
func lastClosingTags(lower string) map[string]int {
	closers := make(map[string]int)
	for _, m := range closeTagPattern.FindAllStringSubmatchIndex(lower, -1) {
		closers[lower[m[2]:m[3]]] = m[0]
	}
	return closers
}

// Sanitize strips every tag and decodes the basic HTML entities
func Sanitize(s string) string {
	return entityReplacer.Replace(anyTagPattern.ReplaceAllString(s, ""))
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

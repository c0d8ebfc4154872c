package provider

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/hoot/chunk"
)

// Rate limit header fields.
const (
	FieldLimit     = "limit"
	FieldRemaining = "remaining"
	FieldReset     = "reset"
)

// HeaderKey names the header carrying one field of one limit window.
type HeaderKey func(resource, field string) string

// ParseRateLimits snapshots the rate limit windows found in h. A window is
// included only when its limit header is present.
func ParseRateLimits(h http.Header, key HeaderKey, resources ...string) []chunk.RateLimit {
	if h == nil {
		return nil
	}
	var out []chunk.RateLimit
	for _, res := range resources {
		limit, err := strconv.Atoi(h.Get(key(res, FieldLimit)))
		if err != nil {
			continue
		}
		remaining, _ := strconv.Atoi(h.Get(key(res, FieldRemaining)))
		out = append(out, chunk.RateLimit{
			Name:      res,
			Limit:     limit,
			Remaining: remaining,
			Reset:     h.Get(key(res, FieldReset)),
		})
	}
	return out
}

// ParseRetryAfter reads retry-after-ms or Retry-After, the latter either in
// seconds or as an HTTP date.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if ms, err := strconv.ParseFloat(h.Get("retry-after-ms"), 64); err == nil && ms > 0 {
		return time.Duration(ms * float64(time.Millisecond))
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// StatusError maps an HTTP failure status onto the error taxonomy.
func StatusError(provider string, status int, code, message string, h http.Header, limits []chunk.RateLimit) error {
	switch status {
	case http.StatusTooManyRequests:
		return &RateLimitedError{
			Provider:   provider,
			Message:    message,
			RetryAfter: ParseRetryAfter(h, time.Now()),
			Limits:     limits,
		}
	case http.StatusRequestEntityTooLarge:
		return &RequestTooLargeError{Provider: provider, Message: message}
	case http.StatusServiceUnavailable, 529:
		return &OverloadedError{Provider: provider, Message: message}
	default:
		if code == "" {
			code = http.StatusText(status)
		}
		return &ResponseError{Provider: provider, StatusCode: status, Code: code, Message: message}
	}
}

package provider

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/casualjim/hoot/chunk"
)

var (
	ErrToolNotFound    = errors.New("tool not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrOverloaded      = errors.New("provider overloaded")
	ErrRequestTooLarge = errors.New("request too large")
	ErrMaxDepth        = errors.New("maximum steps exceeded")
)

// ChunkDecodeError reports a wire payload that could not be decoded.
type ChunkDecodeError struct {
	Provider string
	Data     []byte
	Err      error
}

func (e *ChunkDecodeError) Error() string {
	return fmt.Sprintf("%s: decode chunk %q: %v", e.Provider, truncate(e.Data, 120), e.Err)
}

func (e *ChunkDecodeError) Unwrap() error { return e.Err }

// ResponseError is an upstream error the taxonomy has no narrower kind for.
type ResponseError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

type OverloadedError struct {
	Provider string
	Message  string
}

func (e *OverloadedError) Error() string {
	return fmt.Sprintf("%s: overloaded: %s", e.Provider, e.Message)
}

func (e *OverloadedError) Is(target error) bool { return target == ErrOverloaded }

// RateLimitedError carries the retry hint and the limit windows the provider
// reported, when it reported them.
type RateLimitedError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
	Limits     []chunk.RateLimit
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited (retry after %s): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

type RequestTooLargeError struct {
	Provider string
	Message  string
}

func (e *RequestTooLargeError) Error() string {
	return fmt.Sprintf("%s: request too large: %s", e.Provider, e.Message)
}

func (e *RequestTooLargeError) Is(target error) bool { return target == ErrRequestTooLarge }

// ToolExecutionError wraps a tool that could not be resolved or failed.
type ToolExecutionError struct {
	ToolName   string
	ToolCallID string
	Err        error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (%s): %v", e.ToolName, e.ToolCallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// MaxDepthExceededError is returned by providers whose policy treats an
// exhausted step budget as fatal.
type MaxDepthExceededError struct {
	MaxSteps int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("maximum steps exceeded: %d", e.MaxSteps)
}

func (e *MaxDepthExceededError) Is(target error) bool { return target == ErrMaxDepth }

// IsRetryable reports whether a caller may retry the whole request later.
// Only capacity conditions qualify; everything else fails the same way again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrOverloaded)
}

// RetryAfter returns the provider's retry hint, if err carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// WithRateLimits attaches the turn's rate-limit snapshot to a rate-limit
// error that arrived inside the stream and carries none of its own. Other
// errors are returned unchanged.
func WithRateLimits(err error, limits []chunk.RateLimit) error {
	var rl *RateLimitedError
	if errors.As(err, &rl) && len(rl.Limits) == 0 && len(limits) > 0 {
		rl.Limits = slices.Clone(limits)
	}
	return err
}

// Package chunk defines the normalized output unit of a streamed exchange.
//
// Every provider dialect, whatever its wire format, produces the same chunk
// kinds: text and thinking fragments, finalized tool calls, tool results and
// metadata about the turn. A chunk is immutable once it has been yielded.
package chunk

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Type discriminates the payload a Chunk carries.
type Type string

const (
	TypeText       Type = "text"
	TypeThinking   Type = "thinking"
	TypeToolCall   Type = "tool_call"
	TypeToolResult Type = "tool_result"
	TypeMeta       Type = "meta"
)

func (t Type) String() string { return string(t) }

// FinishReason is the normalized reason a turn ended. The empty value means
// the turn has not reported one.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishLength    FinishReason = "length"
	FinishToolCalls FinishReason = "tool_calls"
	FinishError     FinishReason = "error"
	FinishUnknown   FinishReason = "unknown"
)

func (f FinishReason) String() string { return string(f) }

// Additional content keys shared by the dialects.
const (
	KeyThinking          = "thinking"
	KeyThinkingSignature = "thinking_signature"
	KeyCitations         = "citations"
	KeyStopSequence      = "stop_sequence"
)

// Usage is a token accounting snapshot. Providers report cumulative values
// within a turn, so a later snapshot replaces an earlier one.
type Usage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
}

func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add returns the field-wise sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
	}
}

// Merge overlays the non-zero fields of other onto u. Some providers only
// report output tokens on the final delta and input tokens at the start.
func (u Usage) Merge(other Usage) Usage {
	if other.InputTokens > 0 {
		u.InputTokens = other.InputTokens
	}
	if other.OutputTokens > 0 {
		u.OutputTokens = other.OutputTokens
	}
	if other.CacheReadTokens > 0 {
		u.CacheReadTokens = other.CacheReadTokens
	}
	if other.CacheWriteTokens > 0 {
		u.CacheWriteTokens = other.CacheWriteTokens
	}
	return u
}

// RateLimit is one window of a provider's rate limit headers.
type RateLimit struct {
	Name      string `json:"name"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Reset     string `json:"reset,omitempty"`
}

// Meta describes the turn a chunk belongs to.
type Meta struct {
	ID         string      `json:"id,omitempty"`
	Model      string      `json:"model,omitempty"`
	Step       int         `json:"step"`
	RateLimits []RateLimit `json:"rate_limits,omitempty"`
}

// ToolCall is a finalized tool invocation request. Arguments holds the
// decoded JSON value, or the raw text when it was not valid JSON.
// RawArguments is the exact text the provider streamed.
type ToolCall struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Arguments    any    `json:"arguments"`
	RawArguments string `json:"raw_arguments,omitempty"`
}

// ToolResult pairs the outcome of a tool with the call that requested it.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	Args       any    `json:"args,omitempty"`
	Result     any    `json:"result"`
}

// Chunk is one unit of the normalized output sequence.
type Chunk struct {
	Type         Type
	Text         string
	ToolCalls    []ToolCall
	ToolResults  []ToolResult
	FinishReason FinishReason
	Usage        *Usage
	Meta         *Meta
	Additional   map[string]any

	RunID     uuid.UUID
	Step      int
	Timestamp strfmt.DateTime
}

// Valid reports whether the chunk carries the payload its type promises.
func (c Chunk) Valid() bool {
	switch c.Type {
	case TypeText, TypeThinking:
		return c.Text != ""
	case TypeToolCall:
		return len(c.ToolCalls) > 0
	case TypeToolResult:
		return len(c.ToolResults) > 0
	case TypeMeta:
		return c.Meta != nil
	default:
		return false
	}
}

// IsTerminal reports whether this is the metadata chunk that closes a turn.
func (c Chunk) IsTerminal() bool {
	return c.Type == TypeMeta && c.FinishReason != ""
}

// Stamp returns a copy of c carrying the run envelope.
func (c Chunk) Stamp(runID uuid.UUID, step int) Chunk {
	c.RunID = runID
	c.Step = step
	c.Timestamp = strfmt.DateTime(time.Now().UTC())
	return c
}

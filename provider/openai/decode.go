package openai

import (
	"bytes"
	"errors"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/casualjim/hoot/provider"
	"github.com/tidwall/gjson"
)

// Kind is the type of a decoded stream frame.
type Kind int

const (
	KindUnknown Kind = iota
	// KindChunk is a chat.completion.chunk payload.
	KindChunk
	// KindDone is the [DONE] sentinel that closes the stream.
	KindDone
	// KindError is an error object sent in place of a chunk.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindDone:
		return "done"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

var doneSentinel = []byte("[DONE]")

// ToolCallDelta is one fragment of a streamed tool call. ID and Name are
// only sent with the first fragment of an index.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Event is one decoded frame.
type Event struct {
	Kind Kind

	ID    string
	Model string

	Content      string
	Reasoning    string
	ToolCalls    []ToolCallDelta
	FinishReason string
	Usage        *chunk.Usage

	ErrorCode    string
	ErrorType    string
	ErrorMessage string
}

// Decode parses one data frame. Empty frames decode to nil.
func Decode(frame sse.Frame) (*Event, error) {
	data := bytes.TrimSpace(frame.Data)
	if len(data) == 0 {
		return nil, nil
	}
	if bytes.Equal(data, doneSentinel) {
		return &Event{Kind: KindDone}, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, &provider.ChunkDecodeError{Provider: Name, Data: frame.Data, Err: errors.New("invalid json")}
	}

	doc := gjson.ParseBytes(data)
	if e := doc.Get("error"); e.IsObject() {
		return &Event{
			Kind:         KindError,
			ErrorCode:    e.Get("code").String(),
			ErrorType:    e.Get("type").String(),
			ErrorMessage: e.Get("message").String(),
		}, nil
	}
	if obj := doc.Get("object").String(); obj != "" && obj != "chat.completion.chunk" {
		return &Event{Kind: KindUnknown}, nil
	}

	ev := &Event{
		Kind:  KindChunk,
		ID:    doc.Get("id").String(),
		Model: doc.Get("model").String(),
	}
	if choice := doc.Get("choices.0"); choice.Exists() {
		delta := choice.Get("delta")
		ev.Content = delta.Get("content").String()
		ev.Reasoning = delta.Get("reasoning_content").String()
		ev.FinishReason = choice.Get("finish_reason").String()
		for _, tc := range delta.Get("tool_calls").Array() {
			ev.ToolCalls = append(ev.ToolCalls, ToolCallDelta{
				Index:     int(tc.Get("index").Int()),
				ID:        tc.Get("id").String(),
				Name:      tc.Get("function.name").String(),
				Arguments: tc.Get("function.arguments").String(),
			})
		}
	}
	if u := doc.Get("usage"); u.IsObject() {
		ev.Usage = &chunk.Usage{
			InputTokens:     int(u.Get("prompt_tokens").Int()),
			OutputTokens:    int(u.Get("completion_tokens").Int()),
			CacheReadTokens: int(u.Get("prompt_tokens_details.cached_tokens").Int()),
		}
	}
	return ev, nil
}

// FinishReason maps a finish_reason onto the normalized finish reasons.
func FinishReason(reason string) chunk.FinishReason {
	switch reason {
	case "stop":
		return chunk.FinishStop
	case "length":
		return chunk.FinishLength
	case "tool_calls", "function_call":
		return chunk.FinishToolCalls
	case "content_filter":
		return chunk.FinishError
	case "":
		return ""
	default:
		return chunk.FinishUnknown
	}
}

// Err translates an error frame into the provider error taxonomy.
func (e *Event) Err() error {
	return codeError(e.ErrorCode, e.ErrorType, e.ErrorMessage)
}

func codeError(code, typ, message string) error {
	switch {
	case code == "rate_limit_exceeded" || typ == "rate_limit_error":
		return &provider.RateLimitedError{Provider: Name, Message: message}
	case code == "context_length_exceeded":
		return &provider.RequestTooLargeError{Provider: Name, Message: message}
	case code == "overloaded" || typ == "server_error" || code == "server_error":
		return &provider.OverloadedError{Provider: Name, Message: message}
	default:
		if code == "" {
			code = typ
		}
		return &provider.ResponseError{Provider: Name, Code: code, Message: message}
	}
}

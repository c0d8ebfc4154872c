package provider

import (
	"context"
	"io"
	"iter"
	"net/http"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/casualjim/hoot/tool"
)

// Thread is the conversation an engine reads from and appends to.
// *conversation.Thread implements it.
type Thread interface {
	Append(conversation.Message)
	Messages() []conversation.Message
	AddStep()
	Steps() int
	AddUsage(chunk.Usage)
}

// ToolResolver looks up a tool by the name the model used.
// *tool.Registry implements it.
type ToolResolver interface {
	Resolve(name string) (tool.Definition, bool)
}

// ToolLister is implemented by resolvers that can advertise their tools in a
// request. A resolver without it sends no tool list.
type ToolLister interface {
	Definitions() []tool.Definition
}

// Request is what a Transport needs to open one streaming turn.
type Request struct {
	Model     string
	System    string
	MaxTokens int
	Messages  []conversation.Message
	Tools     []tool.Definition
	Step      int
}

// Connection is an open streaming response. The engine closes Body exactly
// once, whether the turn completes, fails or is abandoned.
type Connection struct {
	Body   io.ReadCloser
	Header http.Header
}

// Transport opens streaming connections. Retries and timeouts are its
// concern; the engine never retries.
type Transport interface {
	Open(ctx context.Context, req Request) (*Connection, error)
}

// Dialect is the wire format of one provider: how frames are split, how each
// frame is decoded and applied to the turn state, and which step budget
// policy the provider uses.
type Dialect interface {
	Name() string
	Frames(r io.Reader) iter.Seq2[sse.Frame, error]
	// Apply decodes one frame and applies it to the turn state. It returns
	// the chunks the frame produced, in order.
	Apply(frame sse.Frame, state *StreamState) ([]chunk.Chunk, error)
	RateLimits(h http.Header) []chunk.RateLimit
	Policy() DepthPolicy
}

// DepthPolicy decides what happens when tools ran on the last allowed step.
type DepthPolicy int

const (
	// StopQuietly ends the stream after the tool results without an error.
	StopQuietly DepthPolicy = iota
	// FailOnExhaustion ends the stream with a MaxDepthExceededError.
	FailOnExhaustion
)

func (p DepthPolicy) String() string {
	switch p {
	case StopQuietly:
		return "stop"
	case FailOnExhaustion:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseDepthPolicy parses the names produced by DepthPolicy.String.
func ParseDepthPolicy(s string) (DepthPolicy, bool) {
	switch s {
	case "stop":
		return StopQuietly, true
	case "fail":
		return FailOnExhaustion, true
	default:
		return StopQuietly, false
	}
}

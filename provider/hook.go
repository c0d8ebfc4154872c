package provider

import (
	"context"
	"log/slog"
	"slices"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/slogx"
)

// Hook observes a stream while it is consumed. Hooks run synchronously on
// the consumer's goroutine, so a slow hook slows the stream down.
//
// There is deliberately no no-op base; implementations decide for every
// event whether to handle it.
type Hook interface {
	// OnRequest runs before every request, step 0 being the initial one.
	OnRequest(ctx context.Context, step int)
	// OnChunk runs for every chunk, before it is handed to the consumer.
	OnChunk(ctx context.Context, c chunk.Chunk)
	// OnError runs once when the stream fails.
	OnError(ctx context.Context, err error)
	// OnDone runs once when the stream ends without error, with the number
	// of requests that were made.
	OnDone(ctx context.Context, requests int)
}

// LoggingHook logs stream progress through the default slog logger.
func LoggingHook() Hook {
	return loggingHook{}
}

type loggingHook struct{}

func (loggingHook) OnRequest(ctx context.Context, step int) {
	slog.DebugContext(ctx, "streaming request", slogx.Step(step))
}

func (loggingHook) OnChunk(ctx context.Context, c chunk.Chunk) {
	switch c.Type {
	case chunk.TypeToolCall:
		for _, call := range c.ToolCalls {
			slog.InfoContext(ctx, "tool call", "tool", call.Name, "id", call.ID, "arguments", call.RawArguments)
		}
	case chunk.TypeToolResult:
		for _, res := range c.ToolResults {
			slog.InfoContext(ctx, "tool result", "tool", res.ToolName, "id", res.ToolCallID)
		}
	case chunk.TypeMeta:
		if c.IsTerminal() {
			slog.DebugContext(ctx, "turn complete", slogx.Step(c.Meta.Step), "finish_reason", c.FinishReason.String())
		}
	default:
		slog.DebugContext(ctx, "chunk", "type", c.Type.String(), "length", len(c.Text))
	}
}

func (loggingHook) OnError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "stream failed", slogx.Error(err))
}

func (loggingHook) OnDone(ctx context.Context, requests int) {
	slog.DebugContext(ctx, "stream done", "requests", requests)
}

// CompositeHook fans every event out to each hook in order.
type CompositeHook []Hook

func (c CompositeHook) OnRequest(ctx context.Context, step int) {
	for h := range slices.Values(c) {
		h.OnRequest(ctx, step)
	}
}

func (c CompositeHook) OnChunk(ctx context.Context, ch chunk.Chunk) {
	for h := range slices.Values(c) {
		h.OnChunk(ctx, ch)
	}
}

func (c CompositeHook) OnError(ctx context.Context, err error) {
	for h := range slices.Values(c) {
		h.OnError(ctx, err)
	}
}

func (c CompositeHook) OnDone(ctx context.Context, requests int) {
	for h := range slices.Values(c) {
		h.OnDone(ctx, requests)
	}
}

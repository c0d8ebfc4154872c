package openai

import (
	"io"
	"iter"
	"net/http"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/casualjim/hoot/provider"
)

// Name identifies the provider in errors, logs and the backend registry.
const Name = "openai"

// Dialect speaks the chat completions chunk stream. Running out of steps
// while the model still calls tools is an error.
type Dialect struct{}

var _ provider.Dialect = Dialect{}

func (Dialect) Name() string { return Name }

func (Dialect) Frames(r io.Reader) iter.Seq2[sse.Frame, error] { return sse.DataFrames(r) }

func (Dialect) Policy() provider.DepthPolicy { return provider.FailOnExhaustion }

func rateLimitHeader(resource, field string) string {
	return "x-ratelimit-" + field + "-" + resource
}

// RateLimits reads the x-ratelimit-* response headers.
func (Dialect) RateLimits(h http.Header) []chunk.RateLimit {
	return provider.ParseRateLimits(h, rateLimitHeader, "requests", "tokens")
}

func (Dialect) Apply(frame sse.Frame, state *provider.StreamState) ([]chunk.Chunk, error) {
	ev, err := Decode(frame)
	if err != nil || ev == nil {
		return nil, err
	}

	switch ev.Kind {
	case KindDone:
		if c, ok := state.End(); ok {
			return []chunk.Chunk{c}, nil
		}
		return nil, nil
	case KindError:
		return nil, provider.WithRateLimits(ev.Err(), state.RateLimits())
	case KindChunk:
	default:
		return nil, nil
	}

	var out []chunk.Chunk
	if !state.Started() && ev.ID != "" {
		out = append(out, state.Start(ev.ID, ev.Model))
	} else {
		state.Identify(ev.ID, ev.Model)
	}

	if c := state.AppendThinking(0, ev.Reasoning); c != nil {
		out = append(out, *c)
	}
	if c := state.AppendText(0, ev.Content); c != nil {
		out = append(out, *c)
	}
	for _, tc := range ev.ToolCalls {
		state.StartBlock(provider.BlockToolUse, tc.Index, tc.ID, tc.Name)
		state.AppendToolArguments(tc.Index, tc.Arguments)
	}
	return append(out, state.Delta(FinishReason(ev.FinishReason), ev.Usage)...), nil
}

package anthropic

import (
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/casualjim/hoot/provider"
)

// Name identifies the provider in errors, logs and the backend registry.
const Name = "anthropic"

// Dialect speaks the Messages API event stream. It stops quietly when the
// step budget runs out.
type Dialect struct{}

var _ provider.Dialect = Dialect{}

func (Dialect) Name() string { return Name }

func (Dialect) Frames(r io.Reader) iter.Seq2[sse.Frame, error] { return sse.EventFrames(r) }

func (Dialect) Policy() provider.DepthPolicy { return provider.StopQuietly }

var rateLimitResources = []string{"requests", "tokens", "input-tokens", "output-tokens"}

func rateLimitHeader(resource, field string) string {
	return "anthropic-ratelimit-" + resource + "-" + field
}

// RateLimits reads the anthropic-ratelimit-* response headers.
func (Dialect) RateLimits(h http.Header) []chunk.RateLimit {
	return provider.ParseRateLimits(h, rateLimitHeader, rateLimitResources...)
}

func (Dialect) Apply(frame sse.Frame, state *provider.StreamState) ([]chunk.Chunk, error) {
	ev, err := Decode(frame)
	if err != nil || ev == nil {
		return nil, err
	}

	switch ev.Kind {
	case KindMessageStart:
		out := []chunk.Chunk{state.Start(ev.ID, ev.Model)}
		return append(out, state.Delta("", ev.Usage)...), nil

	case KindBlockStart:
		state.StartBlock(blockKind(ev.BlockType), ev.Index, ev.BlockID, ev.BlockName)
		return one(state.AppendText(ev.Index, ev.Text)), nil

	case KindBlockDelta:
		switch ev.DeltaType {
		case "text_delta":
			return one(state.AppendText(ev.Index, ev.Text)), nil
		case "thinking_delta":
			return one(state.AppendThinking(ev.Index, ev.Text)), nil
		case "signature_delta":
			state.AppendSignature(ev.Index, ev.Signature)
		case "input_json_delta":
			state.AppendToolArguments(ev.Index, ev.PartialJSON)
		case "citations_delta":
			state.AddCitation(ev.Citation)
		default:
			slog.Warn("unknown delta type", slogx.Provider(Name), "delta_type", ev.DeltaType)
		}
		return nil, nil

	case KindBlockStop:
		return one(state.StopBlock(ev.Index)), nil

	case KindMessageDelta:
		if ev.StopSequence != "" {
			state.SetStopSequence(ev.StopSequence)
		}
		return state.Delta(FinishReason(ev.StopReason), ev.Usage), nil

	case KindMessageStop:
		if c, ok := state.End(); ok {
			return []chunk.Chunk{c}, nil
		}
		return nil, nil

	case KindError:
		return nil, provider.WithRateLimits(ev.Err(), state.RateLimits())

	case KindPing:
		return nil, nil

	default:
		slog.Warn("unknown event type", slogx.Provider(Name), "type", ev.Type)
		return nil, nil
	}
}

func blockKind(typ string) provider.BlockKind {
	switch typ {
	case "text":
		return provider.BlockText
	case "thinking", "redacted_thinking":
		return provider.BlockThinking
	case "tool_use", "server_tool_use":
		return provider.BlockToolUse
	default:
		return provider.BlockNone
	}
}

func one(c *chunk.Chunk) []chunk.Chunk {
	if c == nil {
		return nil
	}
	return []chunk.Chunk{*c}
}

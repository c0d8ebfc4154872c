package anthropic

import (
	"errors"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/casualjim/hoot/provider"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Kind is the type of a decoded stream event.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindMessageStart
	KindBlockStart
	KindBlockDelta
	KindBlockStop
	KindMessageDelta
	KindMessageStop
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindMessageStart:
		return "message_start"
	case KindBlockStart:
		return "content_block_start"
	case KindBlockDelta:
		return "content_block_delta"
	case KindBlockStop:
		return "content_block_stop"
	case KindMessageDelta:
		return "message_delta"
	case KindMessageStop:
		return "message_stop"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

func parseKind(typ string) Kind {
	for k := KindPing; k <= KindError; k++ {
		if k.String() == typ {
			return k
		}
	}
	return KindUnknown
}

// Event is one decoded stream event. Only the fields of its Kind are set.
type Event struct {
	Kind Kind
	// Type is the event type as sent, kept for unknown kinds.
	Type  string
	Index int

	// message_start
	ID    string
	Model string

	// content_block_start
	BlockType string
	BlockID   string
	BlockName string

	// content_block_delta
	DeltaType   string
	Text        string
	PartialJSON string
	Signature   string
	Citation    map[string]any

	// message_delta
	StopReason   string
	StopSequence string

	// message_start and message_delta
	Usage *chunk.Usage

	// error
	ErrorType    string
	ErrorMessage string
}

// Decode parses one frame. Frames without payload decode to nil.
func Decode(frame sse.Frame) (*Event, error) {
	if len(frame.Data) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(frame.Data) {
		return nil, &provider.ChunkDecodeError{Provider: Name, Data: frame.Data, Err: errors.New("invalid json")}
	}

	doc := gjson.ParseBytes(frame.Data)
	typ := doc.Get("type").String()
	if typ == "" {
		typ = frame.Event
	}
	ev := &Event{Kind: parseKind(typ), Type: typ, Index: int(doc.Get("index").Int())}

	switch ev.Kind {
	case KindMessageStart:
		msg := doc.Get("message")
		ev.ID = msg.Get("id").String()
		ev.Model = msg.Get("model").String()
		ev.Usage = usage(msg.Get("usage"))
	case KindBlockStart:
		block := doc.Get("content_block")
		ev.BlockType = block.Get("type").String()
		ev.BlockID = block.Get("id").String()
		ev.BlockName = block.Get("name").String()
		ev.Text = block.Get("text").String()
	case KindBlockDelta:
		delta := doc.Get("delta")
		ev.DeltaType = delta.Get("type").String()
		ev.Text = delta.Get("text").String()
		if ev.DeltaType == "thinking_delta" {
			ev.Text = delta.Get("thinking").String()
		}
		ev.PartialJSON = delta.Get("partial_json").String()
		ev.Signature = delta.Get("signature").String()
		if c := delta.Get("citation"); c.IsObject() {
			if err := json.Unmarshal([]byte(c.Raw), &ev.Citation); err != nil {
				return nil, &provider.ChunkDecodeError{Provider: Name, Data: frame.Data, Err: err}
			}
		}
	case KindMessageDelta:
		ev.StopReason = doc.Get("delta.stop_reason").String()
		ev.StopSequence = doc.Get("delta.stop_sequence").String()
		ev.Usage = usage(doc.Get("usage"))
	case KindError:
		ev.ErrorType = doc.Get("error.type").String()
		ev.ErrorMessage = doc.Get("error.message").String()
	}
	return ev, nil
}

func usage(u gjson.Result) *chunk.Usage {
	if !u.Exists() {
		return nil
	}
	return &chunk.Usage{
		InputTokens:      int(u.Get("input_tokens").Int()),
		OutputTokens:     int(u.Get("output_tokens").Int()),
		CacheReadTokens:  int(u.Get("cache_read_input_tokens").Int()),
		CacheWriteTokens: int(u.Get("cache_creation_input_tokens").Int()),
	}
}

// FinishReason maps a stop_reason onto the normalized finish reasons.
func FinishReason(stopReason string) chunk.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence", "pause_turn", "refusal":
		return chunk.FinishStop
	case "max_tokens":
		return chunk.FinishLength
	case "tool_use":
		return chunk.FinishToolCalls
	case "":
		return ""
	default:
		return chunk.FinishUnknown
	}
}

// Err translates an error event into the provider error taxonomy.
func (e *Event) Err() error {
	switch e.ErrorType {
	case "rate_limit_error":
		return &provider.RateLimitedError{Provider: Name, Message: e.ErrorMessage}
	case "overloaded_error":
		return &provider.OverloadedError{Provider: Name, Message: e.ErrorMessage}
	case "request_too_large":
		return &provider.RequestTooLargeError{Provider: Name, Message: e.ErrorMessage}
	default:
		code := e.ErrorType
		if code == "" {
			code = "api_error"
		}
		return &provider.ResponseError{Provider: Name, Code: code, Message: e.ErrorMessage}
	}
}

package lorem

import (
	"fmt"

	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/tidwall/sjson"
)

// event renders one Messages API stream event. fields are path, value pairs
// set on the data object after its type.
func event(typ string, fields ...any) []byte {
	data := stdx.Must1(sjson.SetBytes([]byte(`{}`), "type", typ))
	for i := 0; i+1 < len(fields); i += 2 {
		data = stdx.Must1(sjson.SetBytes(data, fields[i].(string), fields[i+1]))
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", typ, data)
}

func messageStart(id, model string, inputTokens int) []byte {
	return event("message_start",
		"message.id", id,
		"message.type", "message",
		"message.role", "assistant",
		"message.model", model,
		"message.content", []any{},
		"message.usage.input_tokens", inputTokens,
		"message.usage.output_tokens", 1,
	)
}

func blockStart(index int, block map[string]any) []byte {
	return event("content_block_start", "index", index, "content_block", block)
}

func blockDelta(index int, delta map[string]any) []byte {
	return event("content_block_delta", "index", index, "delta", delta)
}

func blockStop(index int) []byte {
	return event("content_block_stop", "index", index)
}

func messageDelta(stopReason string, outputTokens int) []byte {
	return event("message_delta",
		"delta.stop_reason", stopReason,
		"delta.stop_sequence", nil,
		"usage.output_tokens", outputTokens,
	)
}

func messageStop() []byte {
	return event("message_stop")
}

package chunk

import (
	"maps"
	"slices"
)

// Text builds a text fragment chunk. An empty fragment yields an invalid
// chunk; callers skip it.
func Text(text string) Chunk {
	if text == "" {
		return Chunk{}
	}
	return Chunk{Type: TypeText, Text: text}
}

// Thinking builds a reasoning fragment chunk.
func Thinking(text string) Chunk {
	if text == "" {
		return Chunk{}
	}
	return Chunk{Type: TypeThinking, Text: text}
}

// ToolCalls builds a chunk announcing finalized tool calls.
func ToolCalls(calls ...ToolCall) Chunk {
	if len(calls) == 0 {
		return Chunk{}
	}
	return Chunk{Type: TypeToolCall, ToolCalls: calls}
}

// ToolResults builds a chunk carrying executed tool results.
func ToolResults(results ...ToolResult) Chunk {
	if len(results) == 0 {
		return Chunk{}
	}
	return Chunk{Type: TypeToolResult, ToolResults: results}
}

// MetaChunk builds a metadata chunk. With a finish reason it is the terminal
// chunk of a turn; without one it announces the turn start.
func MetaChunk(meta Meta, finish FinishReason, usage *Usage, additional map[string]any) Chunk {
	meta.RateLimits = slices.Clone(meta.RateLimits)
	c := Chunk{Type: TypeMeta, Meta: &meta, FinishReason: finish}
	if usage != nil {
		u := *usage
		c.Usage = &u
	}
	if len(additional) > 0 {
		c.Additional = maps.Clone(additional)
	}
	return c
}

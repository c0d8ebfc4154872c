package provider

import (
	"iter"
	"strings"

	"github.com/casualjim/hoot/chunk"
)

// Result is a drained stream.
type Result struct {
	Text         string
	Thinking     string
	ToolCalls    []chunk.ToolCall
	ToolResults  []chunk.ToolResult
	FinishReason chunk.FinishReason
	// Usage sums the final usage of every turn.
	Usage chunk.Usage
	Turns int
	// Chunks holds every chunk in the order it was yielded.
	Chunks []chunk.Chunk
}

// Collect drains seq. On failure it returns what was collected up to that
// point together with the error.
func Collect(seq iter.Seq2[chunk.Chunk, error]) (Result, error) {
	var (
		res      Result
		text     strings.Builder
		thinking strings.Builder
	)
	for c, err := range seq {
		if err != nil {
			res.Text, res.Thinking = text.String(), thinking.String()
			return res, err
		}
		res.Chunks = append(res.Chunks, c)

		switch c.Type {
		case chunk.TypeText:
			text.WriteString(c.Text)
		case chunk.TypeThinking:
			thinking.WriteString(c.Text)
		case chunk.TypeToolCall:
			res.ToolCalls = append(res.ToolCalls, c.ToolCalls...)
		case chunk.TypeToolResult:
			res.ToolResults = append(res.ToolResults, c.ToolResults...)
		case chunk.TypeMeta:
			if !c.IsTerminal() {
				continue
			}
			res.Turns++
			res.FinishReason = c.FinishReason
			if c.Usage != nil {
				res.Usage = res.Usage.Add(*c.Usage)
			}
		}
	}
	res.Text, res.Thinking = text.String(), thinking.String()
	return res, nil
}

package provider

import (
	"errors"
	"testing"

	"github.com/casualjim/hoot/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqOf(chunks []chunk.Chunk, err error) func(func(chunk.Chunk, error) bool) {
	return func(yield func(chunk.Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield(chunk.Chunk{}, err)
		}
	}
}

func TestCollect(t *testing.T) {
	chunks := []chunk.Chunk{
		chunk.MetaChunk(chunk.Meta{ID: "m1"}, "", nil, nil),
		chunk.Thinking("hmm"),
		chunk.Text("Hello"),
		chunk.Text(" there"),
		chunk.ToolCalls(chunk.ToolCall{ID: "c1", Name: "clock"}),
		chunk.MetaChunk(chunk.Meta{ID: "m1"}, chunk.FinishToolCalls, &chunk.Usage{InputTokens: 5, OutputTokens: 2}, nil),
		chunk.ToolResults(chunk.ToolResult{ToolCallID: "c1", Result: "noon"}),
		chunk.MetaChunk(chunk.Meta{ID: "m2"}, chunk.FinishStop, &chunk.Usage{InputTokens: 9, OutputTokens: 1}, nil),
	}

	res, err := Collect(seqOf(chunks, nil))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", res.Text)
	assert.Equal(t, "hmm", res.Thinking)
	assert.Len(t, res.ToolCalls, 1)
	assert.Len(t, res.ToolResults, 1)
	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, chunk.FinishStop, res.FinishReason)
	assert.Equal(t, chunk.Usage{InputTokens: 14, OutputTokens: 3}, res.Usage)
	assert.Len(t, res.Chunks, len(chunks))
}

func TestCollect_Error(t *testing.T) {
	boom := errors.New("boom")
	res, err := Collect(seqOf([]chunk.Chunk{chunk.Text("par"), chunk.Text("tial")}, boom))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Text)
	assert.Len(t, res.Chunks, 2)
	assert.Zero(t, res.Turns)
}

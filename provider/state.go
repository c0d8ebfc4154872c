package provider

import (
	"maps"
	"slices"
	"strings"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/uuidx"
)

// BlockKind is the kind of content block deltas are routed to.
type BlockKind int

const (
	BlockNone BlockKind = iota
	BlockText
	BlockThinking
	BlockToolUse
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockThinking:
		return "thinking"
	case BlockToolUse:
		return "tool_use"
	default:
		return "none"
	}
}

type activeBlock struct {
	kind  BlockKind
	index int
}

// StreamState accumulates one turn. It is created fresh for every request
// and owned by the engine for the duration of that turn only.
//
// Every mutation returns the chunks it produced, if any. Tool calls are only
// announced once their arguments are complete.
type StreamState struct {
	step       int
	id         string
	model      string
	rateLimits []chunk.RateLimit

	text      strings.Builder
	thinking  strings.Builder
	signature string
	citations []map[string]any
	stopSeq   string

	pending   map[int]*PendingToolCall
	finalized []chunk.ToolCall

	active *activeBlock
	finish chunk.FinishReason
	usage  *chunk.Usage
	ended  bool
}

// NewStreamState creates the state for the turn at the given step.
func NewStreamState(step int, rateLimits []chunk.RateLimit) *StreamState {
	return &StreamState{
		step:       step,
		rateLimits: slices.Clone(rateLimits),
		pending:    make(map[int]*PendingToolCall),
	}
}

func (s *StreamState) meta() chunk.Meta {
	return chunk.Meta{ID: s.id, Model: s.model, Step: s.step, RateLimits: s.rateLimits}
}

// Start records the response identity and announces the turn.
func (s *StreamState) Start(id, model string) chunk.Chunk {
	if id != "" {
		s.id = id
	}
	if model != "" {
		s.model = model
	}
	return chunk.MetaChunk(s.meta(), "", nil, nil)
}

// Identify records the response identity without announcing anything, for
// wire formats that repeat it on every frame.
func (s *StreamState) Identify(id, model string) {
	if s.id == "" {
		s.id = id
	}
	if s.model == "" {
		s.model = model
	}
}

// Started reports whether a response id has been seen.
func (s *StreamState) Started() bool {
	return s.id != ""
}

// StartBlock marks the block at index as active. A tool block registers a
// pending call; starting a tool block that is already pending merges the
// id and name instead, for formats that spread them over several deltas.
func (s *StreamState) StartBlock(kind BlockKind, index int, id, name string) {
	s.active = &activeBlock{kind: kind, index: index}
	if kind != BlockToolUse {
		return
	}

	if p, ok := s.pending[index]; ok {
		if id != "" {
			p.ID = id
		}
		if name != "" {
			p.Name = name
		}
		return
	}
	if id == "" {
		id = uuidx.Prefixed("call")
	}
	s.pending[index] = &PendingToolCall{Index: index, ID: id, Name: name}
}

// AppendText adds a text delta and emits it. Empty deltas emit nothing.
func (s *StreamState) AppendText(index int, delta string) *chunk.Chunk {
	if delta == "" {
		return nil
	}
	s.text.WriteString(delta)
	c := chunk.Text(delta)
	return &c
}

// AppendThinking adds a reasoning delta and emits it.
func (s *StreamState) AppendThinking(index int, delta string) *chunk.Chunk {
	if delta == "" {
		return nil
	}
	s.thinking.WriteString(delta)
	c := chunk.Thinking(delta)
	return &c
}

// AppendSignature records the signature that seals the thinking block.
func (s *StreamState) AppendSignature(index int, signature string) {
	s.signature += signature
}

// AppendToolArguments adds an argument fragment to the pending call at
// index. Fragments for an index with no pending call go to the active tool
// block; with neither they are dropped and false is returned.
func (s *StreamState) AppendToolArguments(index int, fragment string) bool {
	p, ok := s.pending[index]
	if !ok && s.active != nil && s.active.kind == BlockToolUse {
		p, ok = s.pending[s.active.index]
	}
	if !ok {
		return false
	}
	if fragment != "" {
		p.Fragments = append(p.Fragments, fragment)
	}
	return true
}

// AddCitation attaches a citation to the text accumulated so far.
func (s *StreamState) AddCitation(citation map[string]any) {
	c := maps.Clone(citation)
	if c == nil {
		c = map[string]any{}
	}
	c["text_offset"] = s.text.Len()
	s.citations = append(s.citations, c)
}

// StopBlock closes the block at index. Closing a tool block finalizes it and
// emits the ToolCall chunk.
func (s *StreamState) StopBlock(index int) *chunk.Chunk {
	if s.active != nil && s.active.index == index {
		s.active = nil
	}
	call, ok := s.finalize(index)
	if !ok {
		return nil
	}
	c := chunk.ToolCalls(call)
	return &c
}

func (s *StreamState) finalize(index int) (chunk.ToolCall, bool) {
	p, ok := s.pending[index]
	if !ok {
		return chunk.ToolCall{}, false
	}
	delete(s.pending, index)
	call := Finalize(p)
	s.finalized = append(s.finalized, call)
	return call, true
}

// Delta applies a turn level update. A tool_calls finish finalizes every
// call still pending, in index order.
func (s *StreamState) Delta(finish chunk.FinishReason, usage *chunk.Usage) []chunk.Chunk {
	if usage != nil {
		merged := *usage
		if s.usage != nil {
			merged = s.usage.Merge(*usage)
		}
		s.usage = &merged
	}
	if finish == "" {
		return nil
	}
	s.finish = finish
	if finish != chunk.FinishToolCalls {
		return nil
	}

	indexes := slices.Sorted(maps.Keys(s.pending))
	out := make([]chunk.Chunk, 0, len(indexes))
	for _, idx := range indexes {
		if call, ok := s.finalize(idx); ok {
			out = append(out, chunk.ToolCalls(call))
		}
	}
	return out
}

// SetStopSequence records the stop sequence that ended the turn.
func (s *StreamState) SetStopSequence(seq string) {
	s.stopSeq = seq
}

// End emits the terminal Meta chunk. It returns false when the turn already
// ended. A turn that ends without a finish reason reports unknown.
func (s *StreamState) End() (chunk.Chunk, bool) {
	if s.ended {
		return chunk.Chunk{}, false
	}
	s.ended = true
	s.active = nil
	if s.finish == "" {
		s.finish = chunk.FinishUnknown
	}
	c := chunk.MetaChunk(s.meta(), s.finish, s.usage, s.Additional())
	c.Text = s.text.String()
	c.ToolCalls = slices.Clone(s.finalized)
	return c, true
}

// RateLimits returns the rate-limit snapshot taken from the response headers.
func (s *StreamState) RateLimits() []chunk.RateLimit { return slices.Clone(s.rateLimits) }

// Ended reports whether End has been called.
func (s *StreamState) Ended() bool { return s.ended }

// Step is the continuation depth this turn belongs to.
func (s *StreamState) Step() int { return s.step }

// ID is the provider request id, empty until the turn starts.
func (s *StreamState) ID() string { return s.id }

// Model is the model name the provider reported.
func (s *StreamState) Model() string { return s.model }

// Text returns the visible text accumulated so far.
func (s *StreamState) Text() string { return s.text.String() }

// Thinking returns the reasoning text accumulated so far.
func (s *StreamState) Thinking() string { return s.thinking.String() }

// ToolCalls returns the finalized calls in finalization order.
func (s *StreamState) ToolCalls() []chunk.ToolCall { return slices.Clone(s.finalized) }

// Pending returns the number of tool calls whose arguments are incomplete.
func (s *StreamState) Pending() int { return len(s.pending) }

// FinishReason is the last finish reason seen, empty while streaming.
func (s *StreamState) FinishReason() chunk.FinishReason { return s.finish }

// Usage returns a copy of the usage counters, nil when none were reported.
func (s *StreamState) Usage() *chunk.Usage {
	if s.usage == nil {
		return nil
	}
	u := *s.usage
	return &u
}

// Additional returns the provider extras collected this turn.
func (s *StreamState) Additional() map[string]any {
	out := map[string]any{}
	if s.thinking.Len() > 0 {
		out[chunk.KeyThinking] = s.thinking.String()
	}
	if s.signature != "" {
		out[chunk.KeyThinkingSignature] = s.signature
	}
	if len(s.citations) > 0 {
		out[chunk.KeyCitations] = slices.Clone(s.citations)
	}
	if s.stopSeq != "" {
		out[chunk.KeyStopSequence] = s.stopSeq
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

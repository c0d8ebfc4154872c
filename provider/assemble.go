package provider

import (
	"strings"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/jsonx"
)

// PendingToolCall is a tool invocation whose arguments are still streaming.
type PendingToolCall struct {
	Index     int
	ID        string
	Name      string
	Fragments []string
}

// Arguments returns the fragments received so far, joined.
func (p *PendingToolCall) Arguments() string {
	return strings.Join(p.Fragments, "")
}

// Finalize turns a pending call into a ToolCall. Arguments that form a JSON
// document are decoded; anything else is kept as the raw text so the tool
// can decide what to do with it. No arguments at all means an empty object.
func Finalize(p *PendingToolCall) chunk.ToolCall {
	raw := p.Arguments()
	call := chunk.ToolCall{ID: p.ID, Name: p.Name, RawArguments: raw}

	if strings.TrimSpace(raw) == "" {
		call.Arguments = map[string]any{}
		return call
	}
	call.Arguments, _ = jsonx.ParseValue(raw)
	return call
}

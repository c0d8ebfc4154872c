package conversation

import (
	"maps"
	"slices"
	"time"

	"github.com/casualjim/hoot/chunk"
	"github.com/go-openapi/strfmt"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation. Assistant messages carry the text
// and tool calls of a turn; a tool message carries every result of that turn
// in call order.
type Message struct {
	Role        Role               `json:"role"`
	Content     string             `json:"content,omitempty"`
	ToolCalls   []chunk.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []chunk.ToolResult `json:"tool_results,omitempty"`
	Additional  map[string]any     `json:"additional,omitempty"`
	Timestamp   strfmt.DateTime    `json:"timestamp"`
}

func now() strfmt.DateTime {
	return strfmt.DateTime(time.Now().UTC())
}

func System(text string) Message {
	return Message{Role: RoleSystem, Content: text, Timestamp: now()}
}

func User(text string) Message {
	return Message{Role: RoleUser, Content: text, Timestamp: now()}
}

// Assistant records what the model produced in one turn.
func Assistant(text string, calls []chunk.ToolCall, additional map[string]any) Message {
	m := Message{
		Role:      RoleAssistant,
		Content:   text,
		ToolCalls: slices.Clone(calls),
		Timestamp: now(),
	}
	if len(additional) > 0 {
		m.Additional = maps.Clone(additional)
	}
	return m
}

// ToolResults records the results of every tool call of one turn.
func ToolResults(results []chunk.ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: slices.Clone(results), Timestamp: now()}
}

// HasToolCalls reports whether the message requests tool execution.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

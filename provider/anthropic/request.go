package anthropic

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/tool"
	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"
)

const (
	// DefaultModel is used when neither the request nor the transport names one.
	DefaultModel = "claude-sonnet-4-5"
	// DefaultMaxTokens is sent when the request sets no limit; the API requires one.
	DefaultMaxTokens = 4096
)

// buildBody renders a streaming Messages API request body.
func buildBody(req provider.Request, model string, maxTokens int) ([]byte, error) {
	if req.Model != "" {
		model = req.Model
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	body := []byte(`{"stream":true}`)
	var err error
	if body, err = sjson.SetBytes(body, "model", model); err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "max_tokens", maxTokens); err != nil {
		return nil, err
	}

	system := []string{}
	if s := strings.TrimSpace(req.System); s != "" {
		system = append(system, s)
	}
	body, err = sjson.SetRawBytes(body, "messages", []byte(`[]`))
	if err != nil {
		return nil, err
	}
	for _, msg := range req.Messages {
		if msg.Role == conversation.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		raw, ok, err := message(msg)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if body, err = sjson.SetRawBytes(body, "messages.-1", raw); err != nil {
			return nil, err
		}
	}
	if len(system) > 0 {
		if body, err = sjson.SetBytes(body, "system", strings.Join(system, "\n\n")); err != nil {
			return nil, err
		}
	}

	for _, def := range req.Tools {
		raw, err := toolParam(def)
		if err != nil {
			return nil, err
		}
		if body, err = sjson.SetRawBytes(body, "tools.-1", raw); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// message renders one thread message. Messages with no content are skipped.
func message(msg conversation.Message) ([]byte, bool, error) {
	role := "user"
	var blocks [][]byte
	var err error
	add := func(block string, kv ...any) {
		if err != nil {
			return
		}
		b := []byte(block)
		for i := 0; i+1 < len(kv) && err == nil; i += 2 {
			b, err = sjson.SetBytes(b, kv[i].(string), kv[i+1])
		}
		blocks = append(blocks, b)
	}

	switch msg.Role {
	case conversation.RoleUser:
		if msg.Content != "" {
			add(`{"type":"text"}`, "text", msg.Content)
		}
	case conversation.RoleAssistant:
		role = "assistant"
		thinking, _ := msg.Additional[chunk.KeyThinking].(string)
		signature, _ := msg.Additional[chunk.KeyThinkingSignature].(string)
		if thinking != "" && signature != "" {
			add(`{"type":"thinking"}`, "thinking", thinking, "signature", signature)
		}
		if msg.Content != "" {
			add(`{"type":"text"}`, "text", msg.Content)
		}
		for _, call := range msg.ToolCalls {
			input, ok := call.Arguments.(map[string]any)
			if !ok {
				input = map[string]any{}
			}
			add(`{"type":"tool_use"}`, "id", call.ID, "name", call.Name, "input", input)
		}
	case conversation.RoleTool:
		for _, res := range msg.ToolResults {
			text, ferr := tool.FormatResult(res.Result)
			if ferr != nil {
				return nil, false, fmt.Errorf("anthropic: tool result %s: %w", res.ToolCallID, ferr)
			}
			add(`{"type":"tool_result"}`, "tool_use_id", res.ToolCallID, "content", text)
		}
	default:
		return nil, false, fmt.Errorf("anthropic: unsupported role %q", msg.Role)
	}
	if err != nil {
		return nil, false, err
	}
	if len(blocks) == 0 {
		return nil, false, nil
	}
	content := append(append([]byte("["), bytes.Join(blocks, []byte(","))...), ']')

	out, err := sjson.SetBytes([]byte(`{}`), "role", role)
	if err != nil {
		return nil, false, err
	}
	out, err = sjson.SetRawBytes(out, "content", content)
	return out, err == nil, err
}

func toolParam(def tool.Definition) ([]byte, error) {
	name, schema := def.ToNameAndSchema()
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("anthropic: schema for %s: %w", name, err)
	}
	out, err := sjson.SetBytes([]byte(`{}`), "name", name)
	if err != nil {
		return nil, err
	}
	if def.Description != "" {
		if out, err = sjson.SetBytes(out, "description", def.Description); err != nil {
			return nil, err
		}
	}
	return sjson.SetRawBytes(out, "input_schema", rawSchema)
}

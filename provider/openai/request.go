package openai

import (
	"fmt"
	"strings"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/pkg/jsonx"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/tool"
	json "github.com/goccy/go-json"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/tidwall/sjson"
)

func buildParams(req provider.Request, model string) (openai.ChatCompletionNewParams, error) {
	if req.Model != "" {
		model = req.Model
	}

	msgs, err := messagesToOpenAI(req.System, req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		if def.Function == nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s has nil function", def.Name)
		}
		name, parameters := def.ToNameAndSchema()

		jv, err := jsonx.ToDynamicJSON(parameters)
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert tool to name and schema: %w", err)
		}

		fn := openai.FunctionDefinitionParam{
			Name:       openai.String(name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(def.Description) != "" {
			fn.Description = openai.String(def.Description)
		}
		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fn),
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(msgs),
		Model:    openai.F(model),
		N:        openai.Int(1),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(tools) > 0 {
		params.Tools = openai.F(tools)
		params.ParallelToolCalls = openai.Bool(true)
	}
	return params, nil
}

// buildBody renders a streaming chat completions request body, asking for a
// usage chunk before [DONE].
func buildBody(req provider.Request, model string) ([]byte, error) {
	params, err := buildParams(req, model)
	if err != nil {
		return nil, err
	}
	body, err := params.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if body, err = sjson.SetBytes(body, "stream", true); err != nil {
		return nil, err
	}
	return sjson.SetBytes(body, "stream_options.include_usage", true)
}

func messagesToOpenAI(instructions string, thread []conversation.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var result []openai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(instructions) != "" {
		result = append(result, openai.SystemMessage(instructions))
	}

	for _, msg := range thread {
		switch msg.Role {
		case conversation.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case conversation.RoleUser:
			result = append(result, openai.UserMessageParts(openai.TextPart(msg.Content)))
		case conversation.RoleAssistant:
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			am := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			if msg.Content != "" {
				am.Content.Value = append(am.Content.Value, openai.TextPart(msg.Content))
			}
			if len(msg.ToolCalls) > 0 {
				tcd := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					args, err := arguments(tc)
					if err != nil {
						return nil, err
					}
					tcd[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   openai.String(tc.ID),
						Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
						Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      openai.String(tc.Name),
							Arguments: openai.String(args),
						}),
					}
				}
				am.ToolCalls = openai.F(tcd)
			}
			result = append(result, am)
		case conversation.RoleTool:
			for _, res := range msg.ToolResults {
				content, err := tool.FormatResult(res.Result)
				if err != nil {
					return nil, fmt.Errorf("openai: tool result %s: %w", res.ToolCallID, err)
				}
				result = append(result, openai.ToolMessage(res.ToolCallID, content))
			}
		default:
			return nil, fmt.Errorf("openai: unsupported role %q", msg.Role)
		}
	}
	return result, nil
}

// arguments returns the argument text the model originally produced.
func arguments(tc chunk.ToolCall) (string, error) {
	if tc.RawArguments != "" {
		return tc.RawArguments, nil
	}
	if tc.Arguments == nil {
		return "{}", nil
	}
	b, err := json.Marshal(tc.Arguments)
	if err != nil {
		return "", fmt.Errorf("openai: arguments for %s: %w", tc.ID, err)
	}
	return string(b), nil
}

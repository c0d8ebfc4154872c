package openai

import (
	"testing"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type complexArgs struct {
	City  string   `json:"city"`
	Days  int      `json:"days"`
	Units []string `json:"units,omitempty"`
}

func TestBuildBody(t *testing.T) {
	forecast := tool.Must(func(args complexArgs) string { return args.City },
		tool.Name("forecast"), tool.Description("Weather forecast"), tool.Parameters("args"))
	now := tool.Must(func() string { return "noon" }, tool.Name("now"))

	req := provider.Request{
		System:    "Be brief.",
		MaxTokens: 128,
		Messages: []conversation.Message{
			conversation.User("forecast for Faro"),
			conversation.Assistant("", []chunk.ToolCall{
				{ID: "call_1", Name: "forecast", Arguments: map[string]any{"args": map[string]any{"city": "Faro"}}, RawArguments: `{"args":{"city":"Faro"}}`},
				{ID: "call_2", Name: "now", Arguments: map[string]any{}},
			}, nil),
			conversation.ToolResults([]chunk.ToolResult{
				{ToolCallID: "call_1", ToolName: "forecast", Result: "sunny"},
				{ToolCallID: "call_2", ToolName: "now", Result: 12},
			}),
			conversation.Assistant("Sunny.", nil, nil),
		},
		Tools: []tool.Definition{forecast, now},
	}

	body, err := buildBody(req, "gpt-test")
	require.NoError(t, err)
	doc := gjson.ParseBytes(body)

	assert.Equal(t, "gpt-test", doc.Get("model").String())
	assert.True(t, doc.Get("stream").Bool())
	assert.True(t, doc.Get("stream_options.include_usage").Bool())
	assert.EqualValues(t, 128, doc.Get("max_completion_tokens").Int())
	assert.True(t, doc.Get("parallel_tool_calls").Bool())

	msgs := doc.Get("messages").Array()
	require.Len(t, msgs, 6)
	assert.Equal(t, "system", msgs[0].Get("role").String())
	assert.Equal(t, "user", msgs[1].Get("role").String())
	assert.Equal(t, "assistant", msgs[2].Get("role").String())
	assert.Equal(t, `{"args":{"city":"Faro"}}`, msgs[2].Get("tool_calls.0.function.arguments").String())
	assert.Equal(t, `{}`, msgs[2].Get("tool_calls.1.function.arguments").String())
	assert.Equal(t, "tool", msgs[3].Get("role").String())
	assert.Equal(t, "call_1", msgs[3].Get("tool_call_id").String())
	assert.Contains(t, msgs[4].Get("content").String(), "12")
	assert.Equal(t, "assistant", msgs[5].Get("role").String())

	tools := doc.Get("tools").Array()
	require.Len(t, tools, 2)
	assert.Equal(t, "function", tools[0].Get("type").String())
	assert.Equal(t, "forecast", tools[0].Get("function.name").String())
	assert.Equal(t, "Weather forecast", tools[0].Get("function.description").String())
	assert.Equal(t, "object", tools[0].Get("function.parameters.type").String())
	assert.True(t, tools[0].Get("function.parameters.properties.args").Exists())
	assert.Equal(t, "now", tools[1].Get("function.name").String())
}

func TestBuildBody_NoTools(t *testing.T) {
	body, err := buildBody(provider.Request{Model: "o1", Messages: []conversation.Message{conversation.User("hi")}}, "gpt-test")
	require.NoError(t, err)
	doc := gjson.ParseBytes(body)
	assert.Equal(t, "o1", doc.Get("model").String())
	assert.False(t, doc.Get("tools").Exists())
	assert.False(t, doc.Get("parallel_tool_calls").Exists())
	assert.False(t, doc.Get("max_completion_tokens").Exists())
	assert.Len(t, doc.Get("messages").Array(), 1, "no system message without instructions")
}

func TestBuildParams_NilFunction(t *testing.T) {
	_, err := buildParams(provider.Request{Tools: []tool.Definition{{Name: "broken"}}}, "gpt-test")
	assert.ErrorContains(t, err, "tool broken has nil function")
}

func TestArguments(t *testing.T) {
	args, err := arguments(chunk.ToolCall{Arguments: map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, args)

	args, err = arguments(chunk.ToolCall{RawArguments: "not json"})
	require.NoError(t, err)
	assert.Equal(t, "not json", args)
}

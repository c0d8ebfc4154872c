package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, transport Transport, policy DepthPolicy, options ...Option) *Engine {
	t.Helper()
	e, err := New(transport, scriptDialect{policy: policy}, options...)
	require.NoError(t, err)
	return e
}

func weatherRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	r, err := tool.NewRegistry(
		tool.Must(func(city string) string { return "sunny in " + city }, tool.Name("weather"), tool.Parameters("city")),
		tool.Must(func() string { return "12:00" }, tool.Name("clock")),
		tool.Must(func(a, b int) int { return a + b }, tool.Name("add"), tool.Parameters("a", "b")),
	)
	require.NoError(t, err)
	return r
}

func TestEngine_TextOnlyTurn(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("Hel", "lo", ", ", "world")}}
	hook := &countingHook{}
	engine := newTestEngine(t, transport, StopQuietly, WithHook(hook))
	thread := conversation.New(conversation.User("hi"))

	res, err := Collect(engine.Stream(context.Background(), thread, nil))
	require.NoError(t, err)

	var text strings.Builder
	var terminal []chunk.Chunk
	for _, c := range res.Chunks {
		if c.Type == chunk.TypeText {
			text.WriteString(c.Text)
		}
		if c.IsTerminal() {
			terminal = append(terminal, c)
		}
	}

	assert.Equal(t, "Hello, world", text.String())
	assert.Equal(t, "Hello, world", res.Text)
	require.Len(t, terminal, 1, "exactly one terminal chunk")
	assert.Equal(t, chunk.FinishStop, terminal[0].FinishReason)
	assert.Equal(t, "Hello, world", terminal[0].Text)
	assert.Len(t, transport.Requests(), 1, "no continuation request")
	assert.Equal(t, []int{0}, hook.requests)
	assert.Equal(t, []int{1}, hook.done)
	assert.Empty(t, hook.errs)

	last, ok := thread.Last()
	require.True(t, ok)
	assert.Equal(t, conversation.RoleAssistant, last.Role)
	assert.Equal(t, "Hello, world", last.Content)
	assert.Equal(t, 0, thread.Steps())
}

func TestEngine_StampsChunks(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("a", "b")}}
	engine := newTestEngine(t, transport, StopQuietly)

	res, err := Collect(engine.Stream(context.Background(), conversation.New(), nil))
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	runID := res.Chunks[0].RunID
	for _, c := range res.Chunks {
		assert.Equal(t, runID, c.RunID)
		assert.Equal(t, 0, c.Step)
		assert.False(t, c.Timestamp.IsZero())
	}
}

func TestEngine_ToolTurnAppendsTwoMessages(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{
		toolTurn(
			scriptedCall{id: "call_1", name: "weather", fragments: []string{`{"city":`, `"Lisbon"}`}},
			scriptedCall{id: "call_2", name: "clock"},
			scriptedCall{id: "call_3", name: "add", fragments: []string{`{"a":2,`, `"b":3}`}},
		),
		textTurn("All done"),
	}}
	engine := newTestEngine(t, transport, StopQuietly)
	thread := conversation.New(conversation.User("weather, time and a sum"))

	res, err := Collect(engine.Stream(context.Background(), thread, weatherRegistry(t)))
	require.NoError(t, err)

	msgs := thread.Messages()
	require.Len(t, msgs, 4, "user, assistant with calls, tool results, final assistant")

	assistant := msgs[1]
	assert.Equal(t, conversation.RoleAssistant, assistant.Role)
	require.Len(t, assistant.ToolCalls, 3)
	assert.Equal(t, []string{"call_1", "call_2", "call_3"}, callIDs(assistant.ToolCalls))

	toolMsg := msgs[2]
	assert.Equal(t, conversation.RoleTool, toolMsg.Role)
	require.Len(t, toolMsg.ToolResults, 3)
	assert.Equal(t, "sunny in Lisbon", toolMsg.ToolResults[0].Result)
	assert.Equal(t, "12:00", toolMsg.ToolResults[1].Result)
	assert.Equal(t, 5, toolMsg.ToolResults[2].Result)
	assert.Equal(t, "call_3", toolMsg.ToolResults[2].ToolCallID)

	assert.Equal(t, "All done", msgs[3].Content)
	assert.Len(t, res.ToolCalls, 3)
	assert.Len(t, res.ToolResults, 3)
	assert.Equal(t, 2, res.Turns)
	assert.Equal(t, chunk.FinishStop, res.FinishReason)

	reqs := transport.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3, "continuation sees the tool exchange")
	assert.Equal(t, 1, reqs[1].Step)
	assert.Len(t, reqs[0].Tools, 3, "registered tools are advertised")
	assert.Equal(t, 1, thread.Steps())
}

func TestEngine_ToolResultsFollowToolCalls(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{
		toolTurn(scriptedCall{id: "call_1", name: "clock"}),
		textTurn("ok"),
	}}
	engine := newTestEngine(t, transport, StopQuietly)

	res, err := Collect(engine.Stream(context.Background(), conversation.New(), weatherRegistry(t)))
	require.NoError(t, err)

	var order []chunk.Type
	for _, c := range res.Chunks {
		if c.Type == chunk.TypeToolCall || c.Type == chunk.TypeToolResult {
			order = append(order, c.Type)
		}
	}
	assert.Equal(t, []chunk.Type{chunk.TypeToolCall, chunk.TypeToolResult}, order)
}

func TestEngine_StepBudget(t *testing.T) {
	alwaysTool := [][]string{toolTurn(scriptedCall{id: "call_1", name: "clock"})}

	t.Run("stop quietly", func(t *testing.T) {
		transport := &scriptTransport{scripts: alwaysTool}
		hook := &countingHook{}
		engine := newTestEngine(t, transport, StopQuietly, MaxSteps(2), WithHook(hook))
		thread := conversation.New()

		res, err := Collect(engine.Stream(context.Background(), thread, weatherRegistry(t)))
		require.NoError(t, err)
		assert.Len(t, transport.Requests(), 3)
		assert.Equal(t, []int{0, 1, 2}, hook.requests)
		assert.Len(t, res.ToolResults, 3)
		assert.Equal(t, 2, thread.Steps())
	})

	t.Run("fail on exhaustion", func(t *testing.T) {
		transport := &scriptTransport{scripts: alwaysTool}
		engine := newTestEngine(t, transport, FailOnExhaustion, MaxSteps(2))

		var chunks []chunk.Chunk
		var streamErr error
		for c, err := range engine.Stream(context.Background(), conversation.New(), weatherRegistry(t)) {
			if err != nil {
				streamErr = err
				break
			}
			chunks = append(chunks, c)
		}

		var maxErr *MaxDepthExceededError
		require.ErrorAs(t, streamErr, &maxErr)
		assert.Equal(t, 2, maxErr.MaxSteps)
		assert.ErrorIs(t, streamErr, ErrMaxDepth)
		assert.Len(t, transport.Requests(), 3)
		require.NotEmpty(t, chunks)
		assert.Equal(t, chunk.TypeToolResult, chunks[len(chunks)-1].Type, "tool results are emitted before the error")
	})

	t.Run("policy override", func(t *testing.T) {
		transport := &scriptTransport{scripts: alwaysTool}
		engine := newTestEngine(t, transport, FailOnExhaustion, MaxSteps(0), Policy(StopQuietly))
		assert.Equal(t, StopQuietly, engine.Policy())

		_, err := Collect(engine.Stream(context.Background(), conversation.New(), weatherRegistry(t)))
		require.NoError(t, err)
		assert.Len(t, transport.Requests(), 1)
	})
}

func TestEngine_DecodeFailureStopsReading(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{{
		data(`{"op":"start","id":"msg_1"}`),
		data(`{"op":"text","index":0,"text":"partial"}`),
		data(`{not json`),
		data(`{"op":"text","index":0,"text":"never"}`),
		data(`{"op":"end"}`),
	}}}
	engine := newTestEngine(t, transport, StopQuietly)

	res, err := Collect(engine.Stream(context.Background(), conversation.New(), nil))
	var decodeErr *ChunkDecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "script", decodeErr.Provider)
	assert.Equal(t, "partial", res.Text, "chunks before the failure stay delivered")

	body := transport.bodies[0]
	assert.Equal(t, 3, body.Reads(), "nothing is read after the bad frame")
	assert.Equal(t, 1, body.Closes())
}

func TestEngine_UpstreamErrorEvent(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{{
		data(`{"op":"start","id":"msg_1"}`),
		data(`{"op":"fail","message":"try later"}`),
	}}}
	hook := &countingHook{}
	engine := newTestEngine(t, transport, StopQuietly, WithHook(hook))

	_, err := Collect(engine.Stream(context.Background(), conversation.New(), nil))
	assert.ErrorIs(t, err, ErrOverloaded)
	assert.True(t, IsRetryable(err))
	require.Len(t, hook.errs, 1)
	assert.Empty(t, hook.done)
}

func TestEngine_ConsumerStopClosesOnce(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("one", "two", "three")}}
	engine := newTestEngine(t, transport, StopQuietly)

	for c, err := range engine.Stream(context.Background(), conversation.New(), nil) {
		require.NoError(t, err)
		if c.Type == chunk.TypeText {
			break
		}
	}

	body := transport.bodies[0]
	assert.Equal(t, 1, body.Closes())
	assert.Equal(t, 3, body.Reads(), "start, block and first text frame only")
	assert.Len(t, transport.Requests(), 1)
}

func TestEngine_ContextCancelled(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("x")}}
	engine := newTestEngine(t, transport, StopQuietly)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(engine.Stream(ctx, conversation.New(), nil))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, transport.Requests())
}

func TestEngine_CancelledMidStream(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("one", "two", "three")}}
	engine := newTestEngine(t, transport, StopQuietly)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var streamErr error
	for c, err := range engine.Stream(ctx, conversation.New(), nil) {
		if err != nil {
			streamErr = err
			break
		}
		if c.Type == chunk.TypeText {
			cancel()
		}
	}
	assert.ErrorIs(t, streamErr, context.Canceled)
	assert.Equal(t, 1, transport.bodies[0].Closes())
}

func TestEngine_UnknownTool(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{toolTurn(scriptedCall{id: "call_9", name: "teleport"})}}
	engine := newTestEngine(t, transport, StopQuietly)
	thread := conversation.New(conversation.User("go"))

	_, err := Collect(engine.Stream(context.Background(), thread, weatherRegistry(t)))
	var toolErr *ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "teleport", toolErr.ToolName)
	assert.Equal(t, "call_9", toolErr.ToolCallID)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Equal(t, 1, thread.Len(), "no messages appended for a failed turn")
}

func TestEngine_ToolFailure(t *testing.T) {
	boom := errors.New("sensor offline")
	registry, err := tool.NewRegistry(tool.Must(func() (string, error) { return "", boom }, tool.Name("sensor")))
	require.NoError(t, err)

	transport := &scriptTransport{scripts: [][]string{toolTurn(scriptedCall{id: "call_1", name: "sensor"})}}
	engine := newTestEngine(t, transport, StopQuietly)

	_, err = Collect(engine.Stream(context.Background(), conversation.New(), registry))
	assert.ErrorIs(t, err, boom)
	var toolErr *ToolExecutionError
	assert.ErrorAs(t, err, &toolErr)
}

func TestEngine_TransportError(t *testing.T) {
	transport := &scriptTransport{err: &RateLimitedError{Provider: "script", Message: "slow down"}}
	engine := newTestEngine(t, transport, StopQuietly)

	_, err := Collect(engine.Stream(context.Background(), conversation.New(), nil))
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestEngine_EOFWithoutEnd(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{{
		data(`{"op":"start","id":"msg_1"}`),
		data(`{"op":"text","index":0,"text":"cut"}`),
	}}}
	engine := newTestEngine(t, transport, StopQuietly)

	res, err := Collect(engine.Stream(context.Background(), conversation.New(), nil))
	require.NoError(t, err)
	assert.Equal(t, chunk.FinishUnknown, res.FinishReason)
	assert.Equal(t, 1, res.Turns)
}

func TestEngine_UsageAndRateLimits(t *testing.T) {
	header := http.Header{}
	header.Set("x-limit-requests-limit", "100")
	header.Set("x-limit-requests-remaining", "99")
	transport := &scriptTransport{
		header: header,
		scripts: [][]string{
			toolTurn(scriptedCall{id: "call_1", name: "clock"}),
			textTurn("a", "b"),
		},
	}
	engine := newTestEngine(t, transport, StopQuietly)
	thread := conversation.New()

	res, err := Collect(engine.Stream(context.Background(), thread, weatherRegistry(t)))
	require.NoError(t, err)

	assert.Equal(t, chunk.Usage{InputTokens: 30, OutputTokens: 7}, thread.Usage())
	assert.Equal(t, thread.Usage(), res.Usage)

	start := res.Chunks[0]
	require.Equal(t, chunk.TypeMeta, start.Type)
	assert.Equal(t, []chunk.RateLimit{{Name: "requests", Limit: 100, Remaining: 99}}, start.Meta.RateLimits)
}

func TestEngine_RequestOptions(t *testing.T) {
	transport := &scriptTransport{scripts: [][]string{textTurn("x")}}
	engine := newTestEngine(t, transport, StopQuietly, Model("m-1"), System("be brief"), MaxTokens(256))

	_, err := Collect(engine.Stream(context.Background(), conversation.New(conversation.User("hi")), nil))
	require.NoError(t, err)

	req := transport.Requests()[0]
	assert.Equal(t, "m-1", req.Model)
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, 256, req.MaxTokens)
	assert.Len(t, req.Messages, 1)
	assert.Empty(t, req.Tools)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "transport is required")
	assert.ErrorContains(t, err, "dialect is required")

	_, err = New(&scriptTransport{}, scriptDialect{}, MaxSteps(-1))
	assert.ErrorContains(t, err, "max steps must not be negative")

	_, err = New(&scriptTransport{}, scriptDialect{}, WithHook(nil))
	assert.Error(t, err)

	e, err := New(&scriptTransport{}, scriptDialect{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSteps, e.MaxSteps())
}

func callIDs(calls []chunk.ToolCall) []string {
	ids := make([]string, 0, len(calls))
	for _, c := range calls {
		ids = append(ids, c.ID)
	}
	return ids
}

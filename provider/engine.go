package provider

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/casualjim/hoot/tool"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

// DefaultMaxSteps is the continuation budget when MaxSteps is not set.
const DefaultMaxSteps = 5

// Engine drives streamed exchanges with one provider. It reads the
// provider's frames, turns them into chunks, runs the tools the model asks
// for and continues the exchange until the model stops or the step budget
// is spent.
//
// An Engine holds no per-stream state and can serve concurrent streams.
type Engine struct {
	transport Transport
	dialect   Dialect

	maxSteps  int
	model     string
	system    string
	maxTokens int
	policy    *DepthPolicy
	hooks     []Hook
	logger    *slog.Logger
}

// New creates an engine that opens connections with transport and speaks
// dialect.
func New(transport Transport, dialect Dialect, options ...Option) (*Engine, error) {
	e := &Engine{
		transport: transport,
		dialect:   dialect,
		maxSteps:  DefaultMaxSteps,
	}
	if err := opts.Apply(e, options); err != nil {
		return nil, err
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slogx.LoggerName("engine"), slogx.Provider(dialect.Name()))
	return e, nil
}

// Policy returns the depth policy in effect: the override when one was
// configured, the dialect's otherwise.
func (e *Engine) Policy() DepthPolicy {
	if e.policy != nil {
		return *e.policy
	}
	return e.dialect.Policy()
}

// MaxSteps is the number of continuation requests allowed after the first.
func (e *Engine) MaxSteps() int { return e.maxSteps }

// Stream runs the exchange for thread and yields its chunks as they are
// produced. Nothing is read from the provider until the first chunk is
// requested, and stopping the iteration closes the connection.
//
// A failure is yielded once as the error of the final pair; chunks yielded
// before it remain valid. tools may be nil when no tools are offered.
func (e *Engine) Stream(ctx context.Context, thread Thread, tools ToolResolver) iter.Seq2[chunk.Chunk, error] {
	return func(yield func(chunk.Chunk, error) bool) {
		r := &run{
			engine: e,
			ctx:    ctx,
			thread: thread,
			tools:  tools,
			runID:  uuidx.New(),
			hook:   CompositeHook(e.hooks),
			yield:  yield,
		}
		r.loop()
	}
}

// run is the state of one Stream call.
type run struct {
	engine *Engine
	ctx    context.Context
	thread Thread
	tools  ToolResolver
	runID  uuid.UUID
	hook   Hook
	yield  func(chunk.Chunk, error) bool

	requests int
	stopped  bool
}

func (r *run) log() *slog.Logger {
	return r.engine.logger
}

// emit hands a chunk to the consumer and reports whether to go on.
func (r *run) emit(c chunk.Chunk, step int) bool {
	if r.stopped {
		return false
	}
	c = c.Stamp(r.runID, step)
	r.hook.OnChunk(r.ctx, c)
	if !r.yield(c, nil) {
		r.stopped = true
	}
	return !r.stopped
}

// fail ends the stream with err.
func (r *run) fail(err error) {
	if r.stopped {
		return
	}
	r.stopped = true
	r.hook.OnError(r.ctx, err)
	r.yield(chunk.Chunk{}, err)
}

func (r *run) done() {
	r.hook.OnDone(r.ctx, r.requests)
}

func (r *run) loop() {
	policy := r.engine.Policy()

	for depth := 0; ; depth++ {
		if err := r.ctx.Err(); err != nil {
			r.fail(err)
			return
		}

		state, ok := r.turn(depth)
		if !ok {
			return
		}
		if usage := state.Usage(); usage != nil {
			r.thread.AddUsage(*usage)
		}

		calls := state.ToolCalls()
		if state.FinishReason() != chunk.FinishToolCalls || len(calls) == 0 {
			r.thread.Append(conversation.Assistant(state.Text(), nil, state.Additional()))
			r.done()
			return
		}

		results, ok := r.executeTools(calls, depth)
		if !ok {
			return
		}
		r.thread.Append(conversation.Assistant(state.Text(), calls, state.Additional()))
		r.thread.Append(conversation.ToolResults(results))

		if !r.shouldContinue(depth) {
			if policy == FailOnExhaustion {
				r.fail(&MaxDepthExceededError{MaxSteps: r.engine.maxSteps})
				return
			}
			r.log().DebugContext(r.ctx, "step budget spent, stopping", slogx.Step(depth))
			r.done()
			return
		}
		r.thread.AddStep()
	}
}

func (r *run) shouldContinue(depth int) bool {
	return depth < r.engine.maxSteps
}

func (r *run) request(depth int) Request {
	req := Request{
		Model:     r.engine.model,
		System:    r.engine.system,
		MaxTokens: r.engine.maxTokens,
		Messages:  r.thread.Messages(),
		Step:      depth,
	}
	if lister, ok := r.tools.(ToolLister); ok {
		req.Tools = lister.Definitions()
	}
	return req
}

// turn streams one request to completion. It returns false when the stream
// failed or the consumer stopped.
func (r *run) turn(depth int) (*StreamState, bool) {
	dialect := r.engine.dialect

	r.hook.OnRequest(r.ctx, depth)
	r.requests++
	r.log().DebugContext(r.ctx, "opening stream", slogx.Step(depth))

	conn, err := r.engine.transport.Open(r.ctx, r.request(depth))
	if err != nil {
		r.fail(err)
		return nil, false
	}
	body := closeOnce(conn.Body)
	defer body.Close()

	state := NewStreamState(depth, dialect.RateLimits(conn.Header))
	for frame, err := range dialect.Frames(body) {
		if cerr := r.ctx.Err(); cerr != nil {
			r.fail(cerr)
			return nil, false
		}
		if err != nil {
			r.fail(fmt.Errorf("%s: read stream: %w", dialect.Name(), err))
			return nil, false
		}

		chunks, err := dialect.Apply(frame, state)
		for _, c := range chunks {
			if !r.emit(c, depth) {
				return nil, false
			}
		}
		if err != nil {
			r.fail(err)
			return nil, false
		}
		if state.Ended() {
			break
		}
	}

	if c, ok := state.End(); ok {
		if state.Pending() > 0 {
			r.log().WarnContext(r.ctx, "turn ended with incomplete tool calls", "pending", state.Pending())
		}
		if !r.emit(c, depth) {
			return nil, false
		}
	}
	return state, true
}

// executeTools runs the calls one after another in the order they were
// finalized, yielding each result as soon as it is known.
func (r *run) executeTools(calls []chunk.ToolCall, depth int) ([]chunk.ToolResult, bool) {
	results := make([]chunk.ToolResult, 0, len(calls))
	for _, call := range calls {
		res, err := r.execute(call)
		if err != nil {
			r.log().ErrorContext(r.ctx, "tool failed", "tool", call.Name, "id", call.ID, slogx.Error(err))
			r.fail(err)
			return nil, false
		}
		results = append(results, res)
		if !r.emit(chunk.ToolResults(res), depth) {
			return nil, false
		}
	}
	return results, true
}

func (r *run) execute(call chunk.ToolCall) (chunk.ToolResult, error) {
	var (
		def tool.Definition
		ok  bool
	)
	if r.tools != nil {
		def, ok = r.tools.Resolve(call.Name)
	}
	if !ok {
		return chunk.ToolResult{}, &ToolExecutionError{ToolName: call.Name, ToolCallID: call.ID, Err: ErrToolNotFound}
	}

	out, err := def.Call(r.ctx, call.Arguments)
	if err != nil {
		return chunk.ToolResult{}, &ToolExecutionError{ToolName: call.Name, ToolCallID: call.ID, Err: err}
	}
	return chunk.ToolResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Args:       call.Arguments,
		Result:     out,
	}, nil
}

type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}

func closeOnce(rc io.ReadCloser) io.ReadCloser {
	if rc == nil {
		rc = http.NoBody
	}
	return &onceCloser{ReadCloser: rc}
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/sse"
	"github.com/tidwall/gjson"
)

// scriptDialect is a minimal wire format for exercising the engine. Every
// data line is one operation on the stream state.
type scriptDialect struct {
	policy DepthPolicy
}

func (scriptDialect) Name() string { return "script" }

func (scriptDialect) Frames(r io.Reader) iter.Seq2[sse.Frame, error] { return sse.DataFrames(r) }

func (scriptDialect) RateLimits(h http.Header) []chunk.RateLimit {
	return ParseRateLimits(h, func(res, field string) string {
		return "x-limit-" + res + "-" + field
	}, "requests")
}

func (d scriptDialect) Policy() DepthPolicy { return d.policy }

func (scriptDialect) Apply(frame sse.Frame, state *StreamState) ([]chunk.Chunk, error) {
	if !gjson.ValidBytes(frame.Data) {
		return nil, &ChunkDecodeError{Provider: "script", Data: frame.Data, Err: errors.New("invalid json")}
	}
	op := gjson.ParseBytes(frame.Data)
	idx := int(op.Get("index").Int())

	switch op.Get("op").String() {
	case "start":
		return []chunk.Chunk{state.Start(op.Get("id").String(), op.Get("model").String())}, nil
	case "block":
		kind := BlockText
		if op.Get("kind").String() == "tool" {
			kind = BlockToolUse
		}
		state.StartBlock(kind, idx, op.Get("id").String(), op.Get("name").String())
	case "text":
		if c := state.AppendText(idx, op.Get("text").String()); c != nil {
			return []chunk.Chunk{*c}, nil
		}
	case "args":
		state.AppendToolArguments(idx, op.Get("text").String())
	case "stop":
		if c := state.StopBlock(idx); c != nil {
			return []chunk.Chunk{*c}, nil
		}
	case "delta":
		var usage *chunk.Usage
		if op.Get("out").Exists() {
			usage = &chunk.Usage{InputTokens: int(op.Get("in").Int()), OutputTokens: int(op.Get("out").Int())}
		}
		return state.Delta(chunk.FinishReason(op.Get("finish").String()), usage), nil
	case "end":
		if c, ok := state.End(); ok {
			return []chunk.Chunk{c}, nil
		}
	case "fail":
		return nil, &OverloadedError{Provider: "script", Message: op.Get("message").String()}
	}
	return nil, nil
}

// trackingBody serves one line per Read and records reads and closes.
type trackingBody struct {
	mu     sync.Mutex
	lines  []string
	reads  int
	closes int
}

func newTrackingBody(lines ...string) *trackingBody {
	return &trackingBody{lines: lines}
}

func (b *trackingBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closes > 0 {
		return 0, errors.New("read on closed body")
	}
	if len(b.lines) == 0 {
		return 0, io.EOF
	}
	b.reads++
	line := b.lines[0] + "\n"
	b.lines = b.lines[1:]
	return copy(p, line), nil
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

func (b *trackingBody) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

func (b *trackingBody) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// scriptTransport answers each request with the next script. When scripts
// run out it repeats the last one.
type scriptTransport struct {
	mu       sync.Mutex
	scripts  [][]string
	header   http.Header
	err      error
	requests []Request
	bodies   []*trackingBody
}

func (t *scriptTransport) Open(_ context.Context, req Request) (*Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if t.err != nil {
		return nil, t.err
	}
	i := min(len(t.requests)-1, len(t.scripts)-1)
	body := newTrackingBody(t.scripts[i]...)
	t.bodies = append(t.bodies, body)
	return &Connection{Body: body, Header: t.header}, nil
}

func (t *scriptTransport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

func data(format string, args ...any) string {
	return "data: " + fmt.Sprintf(format, args...)
}

func textTurn(parts ...string) []string {
	lines := []string{data(`{"op":"start","id":"msg_text","model":"test-model"}`), data(`{"op":"block","kind":"text","index":0}`)}
	for _, p := range parts {
		lines = append(lines, data(`{"op":"text","index":0,"text":%q}`, p))
	}
	return append(lines,
		data(`{"op":"stop","index":0}`),
		data(`{"op":"delta","finish":"stop","in":10,"out":%d}`, len(parts)),
		data(`{"op":"end"}`),
	)
}

type scriptedCall struct {
	id, name  string
	fragments []string
}

func toolTurn(calls ...scriptedCall) []string {
	lines := []string{data(`{"op":"start","id":"msg_tool","model":"test-model"}`)}
	for i, c := range calls {
		lines = append(lines, data(`{"op":"block","kind":"tool","index":%d,"id":%q,"name":%q}`, i, c.id, c.name))
		for _, f := range c.fragments {
			lines = append(lines, data(`{"op":"args","index":%d,"text":%q}`, i, f))
		}
		lines = append(lines, data(`{"op":"stop","index":%d}`, i))
	}
	return append(lines,
		data(`{"op":"delta","finish":"tool_calls","in":20,"out":5}`),
		data(`{"op":"end"}`),
	)
}

// countingHook records engine events.
type countingHook struct {
	requests []int
	chunks   []chunk.Chunk
	errs     []error
	done     []int
}

func (h *countingHook) OnRequest(_ context.Context, step int)   { h.requests = append(h.requests, step) }
func (h *countingHook) OnChunk(_ context.Context, c chunk.Chunk) { h.chunks = append(h.chunks, c) }
func (h *countingHook) OnError(_ context.Context, err error)     { h.errs = append(h.errs, err) }
func (h *countingHook) OnDone(_ context.Context, requests int)   { h.done = append(h.done, requests) }

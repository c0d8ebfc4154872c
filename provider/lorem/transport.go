package lorem

import (
	"cmp"
	"context"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/provider/anthropic"
	"github.com/casualjim/hoot/tool"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
)

// Name identifies the backend in the registry.
const Name = "lorem"

const (
	DefaultModel  = "lorem"
	ModelThinking = "lorem-thinking"
	ModelCutoff   = "lorem-cutoff"

	// DefaultMaxTokens applies when a request sets no limit. A word counts
	// as one token.
	DefaultMaxTokens = 4096

	fragmentSize = 8
	signature    = "bG9yZW0taXBzdW0="
)

// Option configures a Transport.
type Option = opts.Option[Transport]

var (
	// Delay paces the stream by holding every event back this long.
	Delay = opts.ForName[Transport, time.Duration]("delay")
	// ToolSteps is how many leading steps call a tool when tools are offered.
	ToolSteps = opts.ForName[Transport, int]("toolSteps")
	// Sentences is the length of a text block.
	Sentences = opts.ForName[Transport, int]("sentences")
)

// Transport makes up Messages API event streams.
type Transport struct {
	mu  sync.Mutex
	gen *loremgen.Lorem

	model     string
	delay     time.Duration
	toolSteps int
	sentences int
}

var _ provider.Transport = (*Transport)(nil)

// NewTransport creates a transport answering as model, DefaultModel when
// empty. By default it streams without delay, calls a tool on the first
// step and answers with three sentences.
func NewTransport(model string, options ...Option) (*Transport, error) {
	t := &Transport{
		gen:       loremgen.New(),
		model:     cmp.Or(model, DefaultModel),
		toolSteps: 1,
		sentences: 3,
	}
	if err := opts.Apply(t, options); err != nil {
		return nil, err
	}
	t.sentences = max(t.sentences, 1)
	return t, nil
}

func (t *Transport) Open(ctx context.Context, req provider.Request) (*provider.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := cmp.Or(req.Model, t.model)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var (
		frames [][]byte
		index  int
		output int
	)
	frames = append(frames, messageStart(uuidx.Prefixed("msg"), model, inputTokens(req.Messages)))

	if model == ModelThinking {
		words := strings.Fields(t.sentence())
		frames = append(frames, blockStart(index, map[string]any{"type": "thinking", "thinking": ""}))
		for _, w := range words {
			frames = append(frames, blockDelta(index, map[string]any{"type": "thinking_delta", "thinking": w + " "}))
		}
		frames = append(frames,
			blockDelta(index, map[string]any{"type": "signature_delta", "signature": signature}),
			blockStop(index),
		)
		output += len(words)
		index++
	}

	words := t.words()
	limit := maxTokens - output
	if model == ModelCutoff {
		limit = min(limit, len(words)/2)
	}
	stopReason := "end_turn"
	if len(words) > limit {
		words = words[:max(limit, 0)]
		stopReason = "max_tokens"
	}
	frames = append(frames, blockStart(index, map[string]any{"type": "text", "text": ""}))
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		frames = append(frames, blockDelta(index, map[string]any{"type": "text_delta", "text": w}))
	}
	frames = append(frames, blockStop(index))
	output += len(words)
	index++

	if stopReason == "end_turn" && len(req.Tools) > 0 && req.Step < t.toolSteps {
		def := req.Tools[req.Step%len(req.Tools)]
		args, err := t.arguments(def)
		if err != nil {
			return nil, err
		}
		frames = append(frames, blockStart(index, map[string]any{
			"type":  "tool_use",
			"id":    uuidx.Prefixed("toolu"),
			"name":  def.Name,
			"input": map[string]any{},
		}))
		for frag := range fragments(args, fragmentSize) {
			frames = append(frames, blockDelta(index, map[string]any{"type": "input_json_delta", "partial_json": frag}))
		}
		frames = append(frames, blockStop(index))
		output += len(args) / 4
		stopReason = "tool_use"
	}

	frames = append(frames, messageDelta(stopReason, output), messageStop())

	header := http.Header{}
	header.Set("Content-Type", "text/event-stream")
	return &provider.Connection{
		Body:   &eventReader{ctx: ctx, frames: frames, delay: t.delay},
		Header: header,
	}, nil
}

func (t *Transport) arguments(def tool.Definition) (string, error) {
	_, schema := def.ToNameAndSchema()
	b, err := json.Marshal(t.sample(schema))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *Transport) words() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for range t.sentences {
		out = append(out, strings.Fields(t.gen.Sentence(5, 12))...)
	}
	return out
}

func (t *Transport) sentence() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen.Sentence(5, 12)
}

func (t *Transport) word() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen.Word(3, 8)
}

// inputTokens approximates the prompt size as its word count.
func inputTokens(msgs []conversation.Message) int {
	var n int
	for _, m := range msgs {
		n += len(strings.Fields(m.Content))
		n += len(m.ToolCalls) + len(m.ToolResults)
	}
	return n
}

func fragments(s string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(s) > 0 {
			n := min(size, len(s))
			if !yield(s[:n]) {
				return
			}
			s = s[n:]
		}
	}
}

// eventReader releases one event at a time, waiting delay before each.
type eventReader struct {
	ctx    context.Context
	frames [][]byte
	cur    []byte
	delay  time.Duration
}

func (r *eventReader) Read(p []byte) (int, error) {
	for len(r.cur) == 0 {
		if len(r.frames) == 0 {
			return 0, io.EOF
		}
		if r.delay > 0 {
			timer := time.NewTimer(r.delay)
			select {
			case <-r.ctx.Done():
				timer.Stop()
				return 0, r.ctx.Err()
			case <-timer.C:
			}
		}
		r.cur, r.frames = r.frames[0], r.frames[1:]
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

func (r *eventReader) Close() error {
	r.frames, r.cur = nil, nil
	return nil
}

func init() {
	provider.Register(Name, func(provider.BackendConfig) (provider.Backend, error) {
		t, err := NewTransport("")
		if err != nil {
			return provider.Backend{}, err
		}
		return provider.Backend{Transport: t, Dialect: anthropic.Dialect{}}, nil
	})
}

package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/provider"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// console renders stream events as they happen. It serves as an engine hook
// and as a topic subscriber alike.
type console struct {
	mu  sync.Mutex
	w   io.Writer
	md  *glamour.TermRenderer
	buf strings.Builder

	// streaming is set while text of the current turn is being printed.
	streaming bool
	thinking  bool
	done      chan struct{}
	closeOnce sync.Once
}

var _ provider.Hook = (*console)(nil)

// newConsole writes to w. With a markdown renderer, text is held back and
// rendered once per turn.
func newConsole(w io.Writer, md *glamour.TermRenderer) *console {
	return &console{w: w, md: md, done: make(chan struct{})}
}

// Done is closed after the stream completed or failed.
func (c *console) Done() <-chan struct{} {
	return c.done
}

func (c *console) OnRequest(_ context.Context, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if step > 0 {
		fmt.Fprintln(c.w, color.HiBlackString("-- step %d", step))
	}
}

func (c *console) OnChunk(_ context.Context, ch chunk.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ch.Type {
	case chunk.TypeThinking:
		if !c.thinking {
			c.thinking = true
			fmt.Fprint(c.w, color.HiBlackString("Thinking: "))
		}
		fmt.Fprint(c.w, color.HiBlackString(ch.Text))

	case chunk.TypeText:
		c.endThinking()
		if c.md != nil {
			c.buf.WriteString(ch.Text)
			return
		}
		if !c.streaming {
			c.streaming = true
			fmt.Fprint(c.w, color.MagentaString("Assistant")+": ")
		}
		fmt.Fprint(c.w, ch.Text)

	case chunk.TypeToolCall:
		c.flush()
		for tc := range slices.Values(ch.ToolCalls) {
			fmt.Fprintf(c.w, "%s%s\n", color.YellowString(tc.Name), cmp.Or(tc.RawArguments, "{}"))
		}

	case chunk.TypeToolResult:
		for res := range slices.Values(ch.ToolResults) {
			fmt.Fprintf(c.w, "%s: %v\n", color.GreenString(res.ToolName), res.Result)
		}

	case chunk.TypeMeta:
		if ch.IsTerminal() {
			c.flush()
		}
	}
}

func (c *console) OnError(_ context.Context, err error) {
	c.mu.Lock()
	c.flush()
	fmt.Fprintf(c.w, "%s: %v\n", color.RedString("Error"), err)
	c.mu.Unlock()
	c.close()
}

func (c *console) OnDone(_ context.Context, requests int) {
	c.mu.Lock()
	c.flush()
	c.mu.Unlock()
	c.close()
}

func (c *console) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *console) endThinking() {
	if c.thinking {
		c.thinking = false
		fmt.Fprintln(c.w)
	}
}

// flush ends the text of the current turn.
func (c *console) flush() {
	c.endThinking()
	if c.md != nil && c.buf.Len() > 0 {
		out, err := c.md.Render(c.buf.String())
		if err != nil {
			out = c.buf.String()
		}
		fmt.Fprint(c.w, color.MagentaString("Assistant")+":")
		fmt.Fprintln(c.w, out)
		c.buf.Reset()
		return
	}
	if c.streaming {
		c.streaming = false
		fmt.Fprintln(c.w)
	}
}

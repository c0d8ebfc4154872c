// Package sse turns a live byte stream into the logical lines and frames of a
// server-sent events response.
//
// The readers are lazy: nothing is read from the underlying connection until
// the consumer asks for the next value, and stopping the iteration stops the
// reads. They never retry; a read error is yielded once and ends the sequence.
package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
)

// Frame is one logical wire event. Event is empty for wire formats that only
// carry data lines.
type Frame struct {
	Event string
	Data  []byte
}

// IsZero reports whether the frame carries neither an event name nor data.
func (f Frame) IsZero() bool {
	return f.Event == "" && len(f.Data) == 0
}

var (
	fieldEvent = []byte("event:")
	fieldData  = []byte("data:")
)

// Lines yields newline-terminated lines from r with the terminator (\n or \r\n)
// removed. Partial lines are buffered across reads; a final line without a
// terminator is still yielded at end of stream.
func Lines(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				line = bytes.TrimRight(line, "\r\n")
				if !yield(line, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}
		}
	}
}

// DataFrames yields one frame per "data:" line. Blank lines, comments and any
// other field carry no payload and are skipped.
func DataFrames(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for line, err := range Lines(r) {
			if err != nil {
				yield(Frame{}, err)
				return
			}
			data, ok := field(line, fieldData)
			if !ok {
				continue
			}
			if !yield(Frame{Data: data}, nil) {
				return
			}
		}
	}
}

// EventFrames pairs "event:" and "data:" lines into a single frame, dispatched
// when a blank line ends the event. Multiple data lines are joined with a
// newline. A pending frame is flushed at end of stream.
func EventFrames(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		var (
			event string
			data  bytes.Buffer
		)
		flush := func() bool {
			if event == "" && data.Len() == 0 {
				return true
			}
			frame := Frame{Event: event, Data: bytes.Clone(data.Bytes())}
			event = ""
			data.Reset()
			return yield(frame, nil)
		}

		for line, err := range Lines(r) {
			if err != nil {
				yield(Frame{}, err)
				return
			}

			if len(line) == 0 {
				if !flush() {
					return
				}
				continue
			}
			if v, ok := field(line, fieldEvent); ok {
				event = string(v)
				continue
			}
			if v, ok := field(line, fieldData); ok {
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.Write(v)
			}
			// comments, id: and retry: carry nothing we use
		}
		flush()
	}
}

func field(line, name []byte) ([]byte, bool) {
	if !bytes.HasPrefix(line, name) {
		return nil, false
	}
	v := line[len(name):]
	if len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return v, true
}

// Package conversation holds the ordered message history of an exchange
// together with its cumulative token usage and continuation count.
package conversation

import (
	"iter"
	"slices"
	"sync"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/google/uuid"
)

// Thread is the mutable conversation state an engine appends to while it
// streams. It is safe to read from other goroutines while a stream runs.
type Thread struct {
	mu       sync.RWMutex
	id       uuid.UUID
	messages []Message
	usage    chunk.Usage
	steps    int
}

// New creates a thread seeded with the given messages.
//
//	thread := conversation.New(conversation.User("What's the weather in Lisbon?"))
func New(seed ...Message) *Thread {
	return &Thread{
		id:       uuidx.New(),
		messages: slices.Clone(seed),
	}
}

func (t *Thread) ID() uuid.UUID {
	return t.id
}

// Append adds a message at the end of the history.
func (t *Thread) Append(m Message) {
	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.mu.Unlock()
}

// Messages returns a copy of the history.
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// All iterates over a snapshot of the history.
func (t *Thread) All() iter.Seq2[int, Message] {
	return slices.All(t.Messages())
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message.
func (t *Thread) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// AddStep records one continuation request.
func (t *Thread) AddStep() {
	t.mu.Lock()
	t.steps++
	t.mu.Unlock()
}

// Steps returns the number of continuation requests made on this thread.
func (t *Thread) Steps() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.steps
}

// AddUsage accumulates the final usage of one turn.
func (t *Thread) AddUsage(u chunk.Usage) {
	t.mu.Lock()
	t.usage = t.usage.Add(u)
	t.mu.Unlock()
}

func (t *Thread) Usage() chunk.Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.usage
}

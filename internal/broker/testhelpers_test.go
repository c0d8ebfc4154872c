package broker

import (
	"context"
	"sync"

	"github.com/casualjim/hoot/chunk"
)

type recordingHook struct {
	mu     sync.Mutex
	wg     *sync.WaitGroup
	steps  []int
	chunks []chunk.Chunk
	errors []error
	done   []int
}

func newRecordingHook(wg *sync.WaitGroup) *recordingHook {
	return &recordingHook{wg: wg}
}

func (r *recordingHook) record(f func()) {
	r.mu.Lock()
	f()
	r.mu.Unlock()
	if r.wg != nil {
		r.wg.Done()
	}
}

func (r *recordingHook) OnRequest(_ context.Context, step int) {
	r.record(func() { r.steps = append(r.steps, step) })
}

func (r *recordingHook) OnChunk(_ context.Context, c chunk.Chunk) {
	r.record(func() { r.chunks = append(r.chunks, c) })
}

func (r *recordingHook) OnError(_ context.Context, err error) {
	r.record(func() { r.errors = append(r.errors, err) })
}

func (r *recordingHook) OnDone(_ context.Context, requests int) {
	r.record(func() { r.done = append(r.done, requests) })
}

func (r *recordingHook) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps) + len(r.chunks) + len(r.errors) + len(r.done)
}

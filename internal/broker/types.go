package broker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/provider"
	"github.com/go-openapi/strfmt"
)

var errHookRequired = errors.New("broker: hook is required")

type Broker interface {
	Topic(context.Context, string) Topic
}

type Topic interface {
	Publish(context.Context, Event) error
	Subscribe(context.Context, provider.Hook) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}

// Kind tells which hook call an event stands for.
type Kind string

const (
	KindRequest Kind = "request"
	KindChunk   Kind = "chunk"
	KindError   Kind = "error"
	KindDone    Kind = "done"
)

// Event is one hook call of a stream, in a form that can cross a process
// boundary. Errors travel as their message.
type Event struct {
	Kind      Kind            `json:"kind"`
	Step      int             `json:"step,omitempty"`
	Requests  int             `json:"requests,omitempty"`
	Chunk     *chunk.Chunk    `json:"chunk,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// RemoteError is a stream failure received from a topic.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// deliver replays ev on hook.
func deliver(ctx context.Context, hook provider.Hook, ev Event) {
	switch ev.Kind {
	case KindRequest:
		hook.OnRequest(ctx, ev.Step)
	case KindChunk:
		if ev.Chunk != nil {
			hook.OnChunk(ctx, *ev.Chunk)
		}
	case KindError:
		hook.OnError(ctx, &RemoteError{Message: ev.Error})
	case KindDone:
		hook.OnDone(ctx, ev.Requests)
	default:
		slog.WarnContext(ctx, "dropping event of unknown kind", "kind", string(ev.Kind))
	}
}

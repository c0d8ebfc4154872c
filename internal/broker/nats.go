package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/pkg/uuidx"
	"github.com/casualjim/hoot/provider"
	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// NATSBroker publishes events on a NATS subject per topic.
type NATSBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

var _ Broker = (*NATSBroker)(nil)

// NATS creates a broker publishing on client, one subject per topic.
func NATS(client *nats.Conn) *NATSBroker {
	return &NATSBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *NATSBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eb, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("broker: encode %s event: %w", event.Kind, err)
	}
	return t.client.Publish(t.subject, eb)
}

func (t *natsTopic) Subscribe(ctx context.Context, hook provider.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errHookRequired
	}

	sub := &natsSubscription{
		id:      uuidx.NewString(),
		channel: make(chan Event, subscriberBuffer),
		done:    make(chan struct{}),
	}
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("failed to unmarshal event", slogx.Error(err), slog.String("subject", msg.Subject))
			return
		}

		select {
		case sub.channel <- event:
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		}

		if msg.Reply != "" {
			if nerr := msg.Ack(); nerr != nil {
				slog.Error("failed to ack message", slogx.Error(nerr))
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("broker: subscribe %s: %w", t.subject, err)
	}
	sub.sub = nsub

	go sub.forward(ctx, hook)
	return sub, nil
}

type natsSubscription struct {
	id        string
	sub       *nats.Subscription
	channel   chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	n.closeOnce.Do(func() {
		close(n.done)
		if err := n.sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
		}
	})
}

func (n *natsSubscription) forward(ctx context.Context, hook provider.Hook) {
	for {
		select {
		case ev := <-n.channel:
			deliver(ctx, hook, ev)
		case <-n.done:
			return
		case <-ctx.Done():
			n.Unsubscribe()
			return
		}
	}
}

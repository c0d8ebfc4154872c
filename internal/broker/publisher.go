package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/hoot/chunk"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/provider"
	"github.com/go-openapi/strfmt"
)

// Publisher is a provider.Hook that publishes every stream event to a topic.
// Publishing ignores the cancellation of the stream's context, so a
// cancelled stream still announces its failure. Publish errors are logged,
// never returned to the stream.
type Publisher struct {
	topic Topic
}

var _ provider.Hook = (*Publisher)(nil)

// NewPublisher publishes to topic.
func NewPublisher(topic Topic) *Publisher {
	return &Publisher{topic: topic}
}

func (p *Publisher) OnRequest(ctx context.Context, step int) {
	p.publish(ctx, Event{Kind: KindRequest, Step: step})
}

func (p *Publisher) OnChunk(ctx context.Context, c chunk.Chunk) {
	p.publish(ctx, Event{Kind: KindChunk, Chunk: &c})
}

func (p *Publisher) OnError(ctx context.Context, err error) {
	p.publish(ctx, Event{Kind: KindError, Error: err.Error()})
}

func (p *Publisher) OnDone(ctx context.Context, requests int) {
	p.publish(ctx, Event{Kind: KindDone, Requests: requests})
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	ev.Timestamp = strfmt.DateTime(time.Now().UTC())
	if err := p.topic.Publish(context.WithoutCancel(ctx), ev); err != nil {
		slog.WarnContext(ctx, "failed to publish stream event", slogx.LoggerName("broker"), "kind", string(ev.Kind), slogx.Error(err))
	}
}

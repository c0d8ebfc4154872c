// Package broker fans stream events out to subscribers on named topics.
//
// A Publisher is a provider.Hook: attached to an engine it publishes every
// request, chunk, failure and completion of a stream to its topic.
// Subscribers receive the same events through their own provider.Hook, so a
// renderer works the same whether it observes the engine directly or
// listens on a topic.
//
// Two brokers are available. Local delivers in process over buffered
// channels and drops subscribers that fall behind. NATS publishes JSON
// encoded events on a subject per topic.
//
//	b := broker.Local()
//	topic := b.Topic(ctx, "run-42")
//	sub, err := topic.Subscribe(ctx, renderer)
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
//
//	engine, err := provider.Open("lorem", provider.BackendConfig{},
//		provider.WithHook(broker.NewPublisher(topic)),
//	)
package broker

// Package provider is the streaming engine that sits between a conversation
// and a remote text generation service.
//
// A provider streams its answer as wire frames. The engine reads those frames
// through the provider's Dialect, accumulates them in a StreamState and turns
// them into normalized chunks. When a turn ends asking for tools, the engine
// runs them in order, appends the assistant and tool messages to the Thread and
// continues with a new request, until the model stops or the step budget runs
// out.
//
// The engine is pull based: Stream returns an iterator and nothing is read
// from the network until the consumer asks for the next chunk.
//
//	engine, err := provider.New(transport, anthropic.Dialect(),
//		provider.Model("claude-sonnet-4-5"),
//		provider.MaxSteps(3),
//	)
//	if err != nil {
//		return err
//	}
//
//	thread := conversation.New(conversation.User("What's the weather in Lisbon?"))
//	for c, err := range engine.Stream(ctx, thread, registry) {
//		if err != nil {
//			return err
//		}
//		if c.Type == chunk.TypeText {
//			fmt.Print(c.Text)
//		}
//	}
//
// # Step budget
//
// The initial request is step 0 and every continuation adds one. A
// continuation happens only while the step is below MaxSteps, so MaxSteps(2)
// allows at most three requests. What happens when tools ran on the last
// allowed step is the dialect's DepthPolicy: StopQuietly ends the stream,
// FailOnExhaustion ends it with a MaxDepthExceededError. Policy overrides it.
//
// # Errors
//
// Upstream failures map onto one taxonomy whether they arrive as an HTTP
// status or as an error event inside the stream: RateLimitedError,
// OverloadedError, RequestTooLargeError and ResponseError. Undecodable
// frames are a ChunkDecodeError and failing tools a ToolExecutionError.
// None of them is retried here; IsRetryable tells callers which ones may be.
package provider

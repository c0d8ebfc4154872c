/*
Package hoot streams model output and runs the tools a model asks for.

A provider engine turns the streaming response of a chat model into a
single sequence of normalized chunks: text, thinking, finalized tool calls,
tool results and turn metadata. When a turn ends asking for tools, the
engine runs them, records the exchange in the conversation and opens the
next request, until the model answers or the step budget is spent.

# Basic Usage

	engine, err := provider.Open("anthropic", provider.BackendConfig{APIKey: key},
		provider.MaxSteps(3),
	)
	if err != nil {
		return err
	}

	thread := conversation.New(conversation.User("What's the weather in Lisbon?"))
	for c, err := range engine.Stream(ctx, thread, tools) {
		if err != nil {
			return err
		}
		if c.Type == chunk.TypeText {
			fmt.Print(c.Text)
		}
	}

# Architecture

1. Engine (provider)
  - Pulls frames from a Transport only when the consumer asks for a chunk
  - Applies them to a per-turn StreamState through a provider Dialect
  - Executes tools sequentially and continues at the next depth

2. Dialects (provider/anthropic, provider/openai)
  - Decode the provider's event stream into state updates
  - Map stop reasons, usage, rate limit headers and errors
  - Choose what happens when the step budget runs out

3. Tools (tool)
  - Wrap plain Go functions, reflecting their parameter schema
  - Validate decoded arguments before invoking

4. Conversation (conversation)
  - Holds the messages a turn reads and the ones it appends

5. Fanout (internal/broker)
  - Publishes stream events to local or NATS subscribers

# Offline Use

The lorem backend (provider/lorem) makes up Anthropic formatted streams, tool
calls included, so everything above runs without credentials. The hoot
command defaults to it.

# Thread Safety

An Engine holds no per-stream state and can serve concurrent streams. A
Thread must not be shared by streams running at the same time. Hooks run on
the consumer's goroutine.
*/
package hoot

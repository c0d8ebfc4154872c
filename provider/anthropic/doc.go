// Package anthropic streams from the Anthropic Messages API.
//
// The Dialect decodes the event stream (message_start, content_block_*,
// message_delta, message_stop, ping and error events) into stream state
// updates. The Transport posts requests through the official SDK client and
// hands the raw event stream to the engine.
//
// Importing the package registers the "anthropic" backend:
//
//	engine, err := provider.Open("anthropic", provider.BackendConfig{APIKey: key},
//		provider.Model("claude-sonnet-4-5"),
//		provider.MaxSteps(3),
//	)
package anthropic

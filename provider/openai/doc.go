/*
Package openai streams from OpenAI's chat completions API.

# Wire format

Every SSE data line carries one chat.completion.chunk. Text arrives in
choices[0].delta.content; tool calls arrive as fragments keyed by their
index, the first fragment of an index carrying the call id and function
name. The stream ends with a data: [DONE] line. Requests ask for
stream_options.include_usage so a usage chunk precedes [DONE].

Error objects sent in place of a chunk are mapped onto the provider error
kinds: rate_limit_exceeded, context_length_exceeded and server errors.

# Step budget

The dialect fails with a MaxDepthExceededError when the model still asks for
tools on the last allowed step.

# Models

Shared transports for well known models are available from GPT4oMini, GPT4o,
O1Mini and O1; Model returns one for any model name:

	transport := openai.Model("gpt-4o-mini",
		option.WithAPIKey("your-key"),
	)
	engine, err := provider.New(transport, openai.Dialect{}, provider.MaxSteps(3))

Importing the package also registers the "openai" backend for provider.Open.
*/
package openai

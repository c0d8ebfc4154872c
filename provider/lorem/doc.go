// Package lorem is an offline provider that makes up its answers.
//
// The Transport synthesizes Anthropic Messages event streams from lorem
// ipsum text, so the engine decodes them with the anthropic Dialect exactly
// like a live response. When the request offers tools, the first turns call
// one of them with arguments sampled from its parameter schema.
//
// The model name selects the shape of the answer:
//
//	lorem           a text block
//	lorem-thinking  a signed thinking block followed by text
//	lorem-cutoff    text that stops at the max token limit
//
// Importing the package registers the "lorem" backend.
package lorem

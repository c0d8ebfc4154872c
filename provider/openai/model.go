package openai

import (
	"github.com/casualjim/hoot/internal/registry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var transports = registry.New[*Transport]()

// GPT4oMini is the shared gpt-4o-mini transport and the backend default.
func GPT4oMini(opts ...option.RequestOption) *Transport {
	return Model(openai.ChatModelGPT4oMini, opts...)
}

// GPT4o is the shared chatgpt-4o-latest transport.
func GPT4o(opts ...option.RequestOption) *Transport {
	return Model(openai.ChatModelChatgpt4oLatest, opts...)
}

// O1Mini is the shared o1-mini transport.
func O1Mini(opts ...option.RequestOption) *Transport {
	return Model(openai.ChatModelO1Mini, opts...)
}

// O1 is the shared o1 transport.
func O1(opts ...option.RequestOption) *Transport {
	return Model(openai.ChatModelO1, opts...)
}

// Model returns the shared transport for a model. The options only take
// effect the first time a model is requested.
func Model(name string, opts ...option.RequestOption) *Transport {
	t, _ := transports.GetOrAdd(name, func() *Transport {
		return NewTransport(name, opts...)
	})
	return t
}

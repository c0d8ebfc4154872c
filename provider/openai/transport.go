package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/casualjim/hoot/provider"
	json "github.com/goccy/go-json"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const completionsPath = "chat/completions"

// Transport opens chat completion streams through the SDK client and hands
// the raw chunk stream to the engine.
type Transport struct {
	client *openai.Client
	model  string
}

var _ provider.Transport = (*Transport)(nil)

// NewTransport creates a transport for model. Without an API key option the
// SDK reads OPENAI_API_KEY.
func NewTransport(model string, options ...option.RequestOption) *Transport {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Transport{
		client: openai.NewClient(options...),
		model:  model,
	}
}

func (t *Transport) Name() string { return t.model }

func (t *Transport) Open(ctx context.Context, req provider.Request) (*provider.Connection, error) {
	body, err := buildBody(req, t.model)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var res *http.Response
	if err := t.client.Post(ctx, completionsPath, json.RawMessage(body), &res); err != nil {
		return nil, translateError(err)
	}
	return &provider.Connection{Body: res.Body, Header: res.Header}, nil
}

func translateError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai: open stream: %w", err)
	}

	code, message := apiErr.Code, apiErr.Message
	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
		if code == "" && message == "" && apiErr.Response.Body != nil {
			// the SDK leaves the error body readable
			if b, rerr := io.ReadAll(apiErr.Response.Body); rerr == nil {
				e := gjson.GetBytes(b, "error")
				code, message = e.Get("code").String(), e.Get("message").String()
			}
		}
	}
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge, http.StatusServiceUnavailable:
		return provider.StatusError(Name, apiErr.StatusCode, code, message, header, Dialect{}.RateLimits(header))
	}
	if code == "context_length_exceeded" {
		return &provider.RequestTooLargeError{Provider: Name, Message: message}
	}
	return provider.StatusError(Name, apiErr.StatusCode, code, message, header, nil)
}

// Options translates backend configuration into SDK request options.
func Options(cfg provider.BackendConfig) []option.RequestOption {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return opts
}

// backendTransport shares the default model transport when the client is
// configured from the environment alone. Explicit credentials or endpoints
// get a transport of their own.
func backendTransport(cfg provider.BackendConfig) *Transport {
	options := Options(cfg)
	if len(options) == 0 {
		return GPT4oMini()
	}
	return NewTransport("", options...)
}

func init() {
	provider.Register(Name, func(cfg provider.BackendConfig) (provider.Backend, error) {
		return provider.Backend{
			Transport: backendTransport(cfg),
			Dialect:   Dialect{},
		}, nil
	})
}

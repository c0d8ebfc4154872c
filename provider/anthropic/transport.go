package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/casualjim/hoot/provider"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const messagesPath = "v1/messages"

// Transport opens Messages API streams through the SDK client. The SDK owns
// authentication, headers and its own retry policy; the stream body is
// handed to the engine undecoded.
type Transport struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

var _ provider.Transport = (*Transport)(nil)

// NewTransport creates a transport with SDK request options. Without an
// API key option the SDK reads ANTHROPIC_API_KEY.
func NewTransport(model string, options ...option.RequestOption) *Transport {
	if model == "" {
		model = DefaultModel
	}
	return &Transport{
		client:    anthropic.NewClient(options...),
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
}

func (t *Transport) Open(ctx context.Context, req provider.Request) (*provider.Connection, error) {
	body, err := buildBody(req, t.model, t.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}

	var res *http.Response
	if err := t.client.Post(ctx, messagesPath, json.RawMessage(body), &res); err != nil {
		return nil, translateError(err)
	}
	return &provider.Connection{Body: res.Body, Header: res.Header}, nil
}

// translateError maps SDK API errors onto the provider error taxonomy.
// Transport failures are wrapped as they are.
func translateError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic: open stream: %w", err)
	}

	raw := apiErr.RawJSON()
	code := gjson.Get(raw, "error.type").String()
	message := gjson.Get(raw, "error.message").String()
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}

	var header http.Header
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	if code == "overloaded_error" {
		return &provider.OverloadedError{Provider: Name, Message: message}
	}
	return provider.StatusError(Name, apiErr.StatusCode, code, message, header, Dialect{}.RateLimits(header))
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

func init() {
	provider.Register(Name, func(cfg provider.BackendConfig) (provider.Backend, error) {
		return provider.Backend{
			Transport: NewTransport("", Options(cfg)...),
			Dialect:   Dialect{},
		}, nil
	})
}

package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/casualjim/hoot/conversation"
	"github.com/casualjim/hoot/provider"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Transport {
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})

	return NewTransport("gpt-test",
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestTransport_Stream(t *testing.T) {
	transport := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "gpt-test", gjson.GetBytes(body, "model").String())
		assert.True(t, gjson.GetBytes(body, "stream").Bool())

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("x-ratelimit-limit-requests", "100")
		w.Header().Set("x-ratelimit-remaining-requests", "98")
		_, _ = io.WriteString(w, textStream("Test ", "response"))
	})

	engine, err := provider.New(transport, Dialect{})
	require.NoError(t, err)

	res, err := provider.Collect(engine.Stream(context.Background(), conversation.New(conversation.User("hi")), nil))
	require.NoError(t, err)
	assert.Equal(t, "Test response", res.Text)

	start := res.Chunks[0]
	require.NotNil(t, start.Meta)
	assert.Equal(t, "chatcmpl-t", start.Meta.ID)
	require.Len(t, start.Meta.RateLimits, 1)
	assert.Equal(t, 98, start.Meta.RateLimits[0].Remaining)
}

func TestTransport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			header: map[string]string{"retry-after-ms": "250", "x-ratelimit-limit-tokens": "1000", "x-ratelimit-remaining-tokens": "0"},
			body:   `{"error":{"message":"Rate limit reached","type":"tokens","code":"rate_limit_exceeded"}}`,
			check: func(t *testing.T, err error) {
				var rl *provider.RateLimitedError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, 250*time.Millisecond, rl.RetryAfter)
				require.Len(t, rl.Limits, 1)
				assert.Equal(t, "tokens", rl.Limits[0].Name)
			},
		},
		{
			name:   "context length",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"maximum context length is 128000 tokens","type":"invalid_request_error","code":"context_length_exceeded"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrRequestTooLarge)
			},
		},
		{
			name:   "unavailable",
			status: http.StatusServiceUnavailable,
			body:   `{"error":{"message":"overloaded","type":"server_error"}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrOverloaded)
				assert.True(t, provider.IsRetryable(err))
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			check: func(t *testing.T, err error) {
				var re *provider.ResponseError
				require.ErrorAs(t, err, &re)
				assert.Equal(t, "invalid_api_key", re.Code)
				assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
				assert.False(t, provider.IsRetryable(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := transport.Open(context.Background(), provider.Request{Messages: []conversation.Message{conversation.User("hi")}})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransport_ContextCancellation(t *testing.T) {
	transport := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, textStream("late"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, err := provider.New(transport, Dialect{})
	require.NoError(t, err)
	_, err = provider.Collect(engine.Stream(ctx, conversation.New(), nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModel(t *testing.T) {
	a := Model("gpt-shared", option.WithAPIKey("k"))
	b := Model("gpt-shared")
	assert.Same(t, a, b)
	assert.Equal(t, "gpt-shared", a.Name())
	assert.NotSame(t, GPT4oMini(), O1())
	assert.Equal(t, "gpt-4o-mini", GPT4oMini().Name())
}

func TestBackendTransport(t *testing.T) {
	assert.Same(t, GPT4oMini(), backendTransport(provider.BackendConfig{}))

	custom := backendTransport(provider.BackendConfig{APIKey: "k", BaseURL: "http://localhost:1/"})
	assert.NotSame(t, GPT4oMini(), custom)
	assert.Equal(t, "gpt-4o-mini", custom.Name())
}

func TestBackendRegistered(t *testing.T) {
	engine, err := provider.Open(Name, provider.BackendConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, provider.FailOnExhaustion, engine.Policy())
}

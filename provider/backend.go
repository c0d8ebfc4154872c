package provider

import (
	"fmt"
	"net/http"

	"github.com/casualjim/hoot/internal/registry"
)

// BackendConfig carries what a provider needs to build its transport.
type BackendConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// Backend is a provider's transport paired with its dialect.
type Backend struct {
	Transport Transport
	Dialect   Dialect
}

// Factory builds a Backend from configuration.
type Factory func(BackendConfig) (Backend, error)

var backends = registry.New[Factory]()

// Register makes a provider available by name. Provider packages register
// themselves when imported.
func Register(name string, factory Factory) {
	backends.Add(name, factory)
}

// Backends returns the registered provider names.
func Backends() []string {
	return backends.Names()
}

// Open builds the named provider's engine.
func Open(name string, cfg BackendConfig, options ...Option) (*Engine, error) {
	factory, ok := backends.Get(name)
	if !ok {
		return nil, fmt.Errorf("provider: unknown backend %q (registered: %v)", name, Backends())
	}
	b, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("provider: %s: %w", name, err)
	}
	return New(b.Transport, b.Dialect, options...)
}

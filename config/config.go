// Package config loads the settings of a streaming run from a YAML file and
// the environment.
//
// Values are applied in order: defaults, the YAML file, the dotenv files it
// names, then HOOT_* environment variables. Dotenv files never override
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/casualjim/hoot/provider"
	"github.com/casualjim/hoot/tool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultProvider works without credentials.
const DefaultProvider = "lorem"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HOOT_"

type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	System    string `yaml:"system"`
	MaxSteps  *int   `yaml:"max_steps"`
	MaxTokens int    `yaml:"max_tokens"`
	// DepthPolicy overrides the provider's policy: "stop" or "fail".
	DepthPolicy string `yaml:"depth_policy"`
	// Tools are glob patterns selecting the tools offered to the model.
	Tools    []string `yaml:"tools"`
	EnvFiles []string `yaml:"env_files"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	steps := provider.DefaultMaxSteps
	cfg := &Config{
		Provider: DefaultProvider,
		MaxSteps: &steps,
	}
	cfg.Log.Level = zerolog.InfoLevel.String()
	return cfg
}

// Load reads the YAML file at path on top of the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		for i, f := range cfg.EnvFiles {
			if !filepath.IsAbs(f) {
				cfg.EnvFiles[i] = filepath.Join(filepath.Dir(path), f)
			}
		}
	}
	if err := cfg.loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadEnvFiles() error {
	for _, f := range c.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: env file %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}

	str("PROVIDER", &c.Provider)
	str("MODEL", &c.Model)
	str("API_KEY", &c.APIKey)
	str("BASE_URL", &c.BaseURL)
	str("SYSTEM", &c.System)
	str("DEPTH_POLICY", &c.DepthPolicy)
	str("LOG_LEVEL", &c.Log.Level)
	str("NATS_SUBJECT", &c.NATS.Subject)
	if v, ok := lookup("NATS_URL"); ok && v != "" && c.NATS.URL == "" {
		c.NATS.URL = v
	}
	if v, ok := lookup(EnvPrefix + "TOOLS"); ok && v != "" {
		c.Tools = strings.Split(v, ",")
	}

	if _, ok := lookup(EnvPrefix + "MAX_STEPS"); ok {
		steps := c.Steps()
		num("MAX_STEPS", &steps)
		c.MaxSteps = &steps
	}
	num("MAX_TOKENS", &c.MaxTokens)
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Provider) == "" {
		errs = append(errs, errors.New("config: provider is required"))
	}
	if c.Steps() < 0 {
		errs = append(errs, fmt.Errorf("config: max_steps must not be negative, got %d", c.Steps()))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("config: max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if c.DepthPolicy != "" {
		if _, ok := provider.ParseDepthPolicy(c.DepthPolicy); !ok {
			errs = append(errs, fmt.Errorf("config: invalid depth_policy %q (want stop|fail)", c.DepthPolicy))
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	return errors.Join(errs...)
}

// Steps is the configured step budget.
func (c *Config) Steps() int {
	if c.MaxSteps == nil {
		return provider.DefaultMaxSteps
	}
	return *c.MaxSteps
}

// LogLevel is the parsed log level, info when unset.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Backend is the transport configuration for the provider.
func (c *Config) Backend() provider.BackendConfig {
	return provider.BackendConfig{APIKey: c.APIKey, BaseURL: c.BaseURL}
}

// EngineOptions translates the settings into engine options.
func (c *Config) EngineOptions() []provider.Option {
	options := []provider.Option{
		provider.MaxSteps(c.Steps()),
		provider.MaxTokens(c.MaxTokens),
	}
	if c.Model != "" {
		options = append(options, provider.Model(c.Model))
	}
	if c.System != "" {
		options = append(options, provider.System(c.System))
	}
	if p, ok := provider.ParseDepthPolicy(c.DepthPolicy); ok {
		options = append(options, provider.Policy(p))
	}
	return options
}

// Open builds the configured provider's engine. Extra options apply after
// the configured ones.
func (c *Config) Open(extra ...provider.Option) (*provider.Engine, error) {
	return provider.Open(c.Provider, c.Backend(), append(c.EngineOptions(), extra...)...)
}

// SelectTools narrows registry down to the configured tool patterns.
func (c *Config) SelectTools(registry *tool.Registry) (*tool.Registry, error) {
	return registry.Filter(c.Tools...)
}

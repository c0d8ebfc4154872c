package provider

import (
	"errors"
	"log/slog"

	"github.com/fogfish/opts"
)

// Option configures an Engine.
type Option = opts.Option[Engine]

var (
	// MaxSteps bounds the number of continuation requests after tool use.
	MaxSteps = opts.ForName[Engine, int]("maxSteps")
	// Model names the model sent with every request.
	Model = opts.ForName[Engine, string]("model")
	// System sets the system prompt sent with every request.
	System = opts.ForName[Engine, string]("system")
	// MaxTokens bounds the output tokens of each turn.
	MaxTokens = opts.ForName[Engine, int]("maxTokens")
)

// Policy overrides the dialect's depth policy.
func Policy(p DepthPolicy) Option {
	return opts.Type[Engine](func(e *Engine) error {
		e.policy = &p
		return nil
	})
}

// WithHook adds a hook; hooks run in the order they were added.
func WithHook(h Hook) Option {
	return opts.Type[Engine](func(e *Engine) error {
		if h == nil {
			return errors.New("provider: nil hook")
		}
		e.hooks = append(e.hooks, h)
		return nil
	})
}

// WithLogger sets the logger; the default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return opts.Type[Engine](func(e *Engine) error {
		e.logger = l
		return nil
	})
}

func (e *Engine) validate() error {
	var errs []error
	if e.transport == nil {
		errs = append(errs, errors.New("provider: transport is required"))
	}
	if e.dialect == nil {
		errs = append(errs, errors.New("provider: dialect is required"))
	}
	if e.maxSteps < 0 {
		errs = append(errs, errors.New("provider: max steps must not be negative"))
	}
	if e.maxTokens < 0 {
		errs = append(errs, errors.New("provider: max tokens must not be negative"))
	}
	return errors.Join(errs...)
}

// Package slogx holds the slog attribute helpers shared by the engine, the
// dialects and the broker so that log keys stay consistent.
package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the attribute key naming the component that logged.
	KeyLoggerName = "logger"
	// KeyProvider is the attribute key for the provider dialect name.
	KeyProvider = "provider"
	// KeyStep is the attribute key for the continuation depth.
	KeyStep = "step"
)

// Error returns an "error" attribute with the error message. A nil error
// renders as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// ByteString renders a byte slice as a string attribute, for wire payloads.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer renders a fmt.Stringer as a string attribute.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns the logger name attribute.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

func Step(depth int) slog.Attr {
	return slog.Int(KeyStep, depth)
}

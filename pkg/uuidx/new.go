package uuidx

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a version 7 UUID. It panics if the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns New formatted as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns an identifier of the form "<prefix>_<32 hex chars>", the
// shape providers use for message and tool call ids. It is used when a wire
// format omits an id that the conversation needs to correlate results.
func Prefixed(prefix string) string {
	id := strings.ReplaceAll(NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

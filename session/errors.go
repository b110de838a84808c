package session

import (
	"errors"
	"fmt"
)

var (
	// ErrUndecodableResponse indicates that the target answered with bytes
	// that are not ASCII text. The protocol cannot resynchronize, so the run
	// is aborted.
	ErrUndecodableResponse = errors.New("session: received undecodable data, target may already be running")

	// ErrConfigRejected matches every configuration validation error.
	ErrConfigRejected = errors.New("session: configuration rejected")

	ErrConfigNil  = errors.New("session: config is nil")
	ErrChannelNil = errors.New("session: channel is nil")
	ErrSinkNil    = errors.New("session: output sink is nil")
)

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("session: invalid %s: %s", e.Field, e.Reason)
	}

	return fmt.Sprintf("session: invalid %s %s: %s", e.Field, e.Value, e.Reason)
}

// Is reports ErrConfigRejected as a match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigRejected
}

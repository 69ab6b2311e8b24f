package scale

import (
	"errors"
	"fmt"
)

// Domain errors for engine construction.
var (
	// ErrConfiguration is the only fatal error class. It is raised before a
	// simulation starts and never mid-run.
	ErrConfiguration = errors.New("terrasim: invalid configuration")

	// ErrConservation marks persistent mass-conservation drift. It is
	// recoverable: the simulation keeps producing states.
	ErrConservation = errors.New("terrasim: persistent conservation violation")
)

// ConfigurationError names the offending option.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErr(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// NewConfigurationError builds a ConfigurationError for callers outside
// this package.
func NewConfigurationError(field string, value any, reason string) error {
	return configErr(field, value, reason)
}

// ConservationViolation wraps ErrConservation with the tick context.
type ConservationViolation struct {
	Tick          int64
	Consecutive   int
	RelativeError float64
}

func (e *ConservationViolation) Error() string {
	return fmt.Sprintf("tick %d: %s (relative error %.3g for %d ticks)", e.Tick, ErrConservation, e.RelativeError, e.Consecutive)
}

func (e *ConservationViolation) Unwrap() error { return ErrConservation }

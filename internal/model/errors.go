package model

import (
	"errors"
	"fmt"
)

// Sentinel causes for degenerate input.
var (
	// ErrEmptyBuffer means a buffer covered no valid pixel.
	ErrEmptyBuffer = errors.New("buffer covers no valid pixels")
	// ErrDegenerate means a ratio needed a non-zero spread that was zero.
	ErrDegenerate = errors.New("degenerate input: zero variance or zero range")
)

// InputError is fatal for one configuration: a source could not be read or
// a sample cannot produce the statistics the chain needs.
type InputError struct {
	Variable string
	Buffer   int // -1 when not buffer specific
	Err      error
}

func (e *InputError) Error() string {
	switch {
	case e.Variable != "" && e.Buffer >= 0:
		return fmt.Sprintf("input error: variable %s, buffer %d: %v", e.Variable, e.Buffer, e.Err)
	case e.Variable != "":
		return fmt.Sprintf("input error: variable %s: %v", e.Variable, e.Err)
	case e.Buffer >= 0:
		return fmt.Sprintf("input error: buffer %d: %v", e.Buffer, e.Err)
	default:
		return fmt.Sprintf("input error: %v", e.Err)
	}
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError wraps err for a variable that is not buffer specific.
func NewInputError(variable string, err error) *InputError {
	return &InputError{Variable: variable, Buffer: -1, Err: err}
}

// IsInputError returns true if err (or anything it wraps) is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// ConfigError reports a configuration value the chain cannot honour.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err (or anything it wraps) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

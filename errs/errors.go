// Package errs holds the error taxonomy shared by the tree builder, the
// simulator and the draw sources.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned by result accessors when a step, factor or
// period index falls outside the stored data.
var ErrOutOfRange = errors.New("index out of range")

// ConfigError reports an invalid or inconsistent argument supplied at
// construction time.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// Config builds a ConfigError for param, with a stack attached.
func Config(param, format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{
		Param:  param,
		Reason: fmt.Sprintf(format, args...),
	})
}

// IsConfig reports whether err carries a ConfigError anywhere in its chain.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ParamOf returns the offending parameter name of a ConfigError, or "" if
// err is not one.
func ParamOf(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Param
	}
	return ""
}

// OutOfRange wraps ErrOutOfRange with the name and bounds of the index.
func OutOfRange(name string, index, length int) error {
	return errors.Wrapf(ErrOutOfRange, "%s %d not in [0, %d)", name, index, length)
}

// CapabilityError is returned when an optional capability is requested
// from a value that does not implement it.
type CapabilityError struct {
	Capability string
	Actual     string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s not supported by %s", e.Capability, e.Actual)
}

// Capability builds a CapabilityError describing the concrete type of v.
func Capability(capability string, v interface{}) error {
	return errors.WithStack(&CapabilityError{
		Capability: capability,
		Actual:     fmt.Sprintf("%T", v),
	})
}

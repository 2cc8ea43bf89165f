package circuit

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid circuit, roster, or scheme supplied by
// the caller. It is detected eagerly (at partition or compile time) and is
// never retried; the caller must resupply a corrected circuit.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

// Configf returns a ConfigurationError with a formatted message.
func Configf(format string, args ...any) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

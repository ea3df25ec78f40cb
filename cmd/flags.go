package cmd

import (
	"fmt"
	"strconv"

	"github.com/conneroisu/stencil/internal/logging"
	"github.com/spf13/pflag"
)

// AddFlagValidation wraps the named flag so every value is checked before it
// is stored.
func AddFlagValidation(flags *pflag.FlagSet, name string, validator func(string) error) {
	flag := flags.Lookup(name)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 0 to 65535. Zero asks the OS for a free port.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateLogLevel accepts the level names understood by the logger.
func ValidateLogLevel(level string) error {
	_, err := logging.ParseLevel(level)
	return err
}

package config

import (
	"fmt"
	"strings"
)

// Validator is the interface for validating configuration.
type Validator interface {
	Validate() error
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "warning", "error", "disabled", "off"}

// Validate validates Config.
func (c *Config) Validate() error {
	var errors []ValidationError

	if !containsFold(validLogLevels, c.Log.Level) {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q (want one of %s)", c.Log.Level, strings.Join(validLogLevels, ", ")),
		})
	}

	switch c.Log.Style {
	case LogStyleAuto, LogStyleConsole, LogStyleJSON:
	default:
		errors = append(errors, ValidationError{
			Field:   "log.style",
			Message: "log style must be 'auto', 'console' or 'json'",
		})
	}

	switch c.Output.Format {
	case FormatText, FormatJSON, FormatCSV:
	default:
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Message: fmt.Sprintf("unsupported format %q (want text, json or csv)", c.Output.Format),
		})
	}

	if c.Symbolizer.CacheEntries < 0 {
		errors = append(errors, ValidationError{
			Field:   "symbolizer.cache_entries",
			Message: "cache size cannot be negative",
		})
	}

	if c.Symbolizer.LoadAddress != 0 && c.Symbolizer.LoadAddress < c.Symbolizer.BaseAddress {
		errors = append(errors, ValidationError{
			Field:   "symbolizer.load_address",
			Message: "load address must not be below the base address",
		})
	}

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

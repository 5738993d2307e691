// Package errors provides utilities for error handling in dwarfscope.
package errors

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// DeferClose properly closes an io.Closer with logging.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// CloseInto closes closer and joins a close failure into *errp.
// Use it in defer statements of functions with a named error result.
func CloseInto(errp *error, closer io.Closer, what string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("failed to close %s: %w", what, err))
	}
}

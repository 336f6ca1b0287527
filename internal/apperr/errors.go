// Package apperr defines the error taxonomy shared by services, stores and
// handlers. Every domain failure wraps one of these sentinels so callers can
// classify with errors.Is without string matching.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrDeadlineExceeded   = errors.New("deadline exceeded")
	ErrFailedPrecondition = errors.New("failed precondition")
	ErrInternal           = errors.New("internal error")
)

// NotFound wraps ErrNotFound with a formatted detail message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func AlreadyExists(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, fmt.Sprintf(format, args...))
}

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func DeadlineExceeded(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDeadlineExceeded, fmt.Sprintf(format, args...))
}

func FailedPrecondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailedPrecondition, fmt.Sprintf(format, args...))
}

// Internal wraps a storage or RPC failure so it surfaces as ErrInternal while
// keeping the cause in the chain.
func Internal(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, fmt.Sprintf(format, args...), cause)
}

package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodeValidation       = "validation_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeStoreUnavailable = "store_unavailable"
	ErrCodeBadRequest       = "bad_request"

	// Protocol-level codes, produced by transports before a command reaches the hub.
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
)

var (
	// ErrUnauthenticated means the connection's credential was missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrValidation means the request was rejected before any state changed.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means a referenced user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable means durable storage failed; the operation did not succeed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// toCoreError maps an operation error onto the wire taxonomy.
// Store details are not exposed to clients.
func toCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrValidation):
		return coreError(ErrCodeValidation, err.Error())
	case errors.Is(err, ErrNotFound):
		return coreError(ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrUnauthenticated):
		return coreError(ErrCodeUnauthenticated, "unauthenticated")
	default:
		return coreError(ErrCodeStoreUnavailable, "operation failed, try again later")
	}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

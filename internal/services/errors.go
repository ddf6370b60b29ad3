package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrOutOfStock          = errors.New("reward out of stock")
	ErrTierIneligible      = errors.New("member tier not eligible")
	// ErrDuplicateEvent marks a replayed event that was already applied.
	// Callers delivering at-least-once treat it as success.
	ErrDuplicateEvent = errors.New("event already processed")
	// ErrStoreUnavailable wraps storage failures. The operation did not
	// commit and may be retried with the same idempotency key.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Package errx defines the error taxonomy shared across the core.
package errx

import (
	"errors"
	"fmt"
)

// Sentinel categories. Callers branch on these with errors.Is; the
// wrapped cause stays reachable through Unwrap.
var (
	// ErrCatalogUnavailable marks a failed product catalog fetch.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrStockUnavailable marks a stock fetch that exhausted its retries.
	ErrStockUnavailable = errors.New("stock unavailable")
)

// AppError pairs an underlying error with a category sentinel and a
// message safe to show to a user.
type AppError struct {
	Err     error
	Kind    error
	Message string
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error { return e.Err }

// Is matches either the category sentinel or the wrapped error chain.
func (e *AppError) Is(target error) bool {
	return target == e.Kind || errors.Is(e.Err, target)
}

// WrapCatalog wraps a product fetch failure.
func WrapCatalog(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Kind: ErrCatalogUnavailable, Message: "could not load product catalog"}
}

// WrapStock wraps an exhausted-retries stock fetch failure. The attempt
// count goes into the user-facing message.
func WrapStock(err error, attempts int) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Kind:    ErrStockUnavailable,
		Message: fmt.Sprintf("stock levels unavailable after %d attempts", attempts),
	}
}

// Message returns the safe message of err, or a generic fallback.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return "internal error"
}

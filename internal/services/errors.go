package services

import (
	"errors"
	"fmt"

	"github.com/isdelr/papertrade-be/internal/quote"
)

var (
	// ErrValidation matches every malformed-input error.
	ErrValidation = errors.New("invalid input")
	// ErrMissingField matches errors for blank form fields.
	ErrMissingField  = errors.New("missing field")
	ErrInvalidShares = &ValidationError{Msg: "shares must be a positive whole number"}

	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrNotFound           = errors.New("not found")

	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")

	ErrSymbolNotFound   = quote.ErrSymbolNotFound
	ErrQuoteUnavailable = quote.ErrUnavailable

	// ErrStore tags every failure of the persistent store.
	ErrStore = errors.New("store failure")
)

// ValidationError carries a message fit to show the user.
type ValidationError struct {
	Msg   string
	Field string // set for missing fields
}

func (e *ValidationError) Error() string { return e.Msg }

// Is makes every ValidationError match ErrValidation, and missing-field ones ErrMissingField.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (target == ErrMissingField && e.Field != "")
}

func missing(field string) error {
	return &ValidationError{Msg: "must provide " + field, Field: field}
}

// storeErr tags err as a store failure while keeping it inspectable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStore, err))
}

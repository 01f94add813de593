// Package common defines the error taxonomy shared by the session, ledger and
// transaction layers. Callers match the kind with errors.Is and show the
// message returned by Error().
package common

import (
	"errors"
	"fmt"
)

var (
	// Wallet errors.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")
	ErrUserRejected        = errors.New("user rejected the request")

	// Write path preconditions.
	ErrNotConnected     = errors.New("wallet not connected")
	ErrValidationFailed = errors.New("validation failed")

	// Ledger errors.
	ErrLedgerRejected = errors.New("transaction reverted")
	ErrReadFailed     = errors.New("ledger read failed")

	ErrUnknown = errors.New("unknown error")
)

// Error is a classified failure. Kind is one of the sentinels above, Message is
// what the user sees and Err keeps the transport error for logs.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error with a formatted message.
func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. The message defaults to err's text.
func Wrap(kind error, err error) *Error {
	if err == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// Validation reports a client-side rule violation; msg names the rule.
func Validation(msg string) *Error {
	return &Error{Kind: ErrValidationFailed, Message: msg}
}

// KindOf returns the taxonomy kind of err, ErrUnknown when it is unclassified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	for _, k := range []error{ErrProviderUnavailable, ErrUserRejected, ErrNotConnected,
		ErrValidationFailed, ErrLedgerRejected, ErrReadFailed} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

package services

import (
	"errors"
)

// Error kinds surfaced to the transport layer. Match with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
)

// AccountError is a caller-facing failure. Msg is safe to show to clients.
type AccountError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *AccountError) Error() string { return e.Msg }

func (e *AccountError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string) *AccountError {
	return &AccountError{Kind: kind, Msg: msg}
}

var (
	ErrUsernameTaken       = newError(ErrConflict, "Username already exists")
	ErrEmailTaken          = newError(ErrConflict, "Email already exists")
	ErrInvalidCredentials  = newError(ErrUnauthorized, "Invalid credentials")
	ErrUserNotFound        = newError(ErrNotFound, "User not found")
	ErrWrongPassword       = newError(ErrBadRequest, "Current password is incorrect")
	ErrIncorrectPassword   = newError(ErrBadRequest, "Password is incorrect")
	ErrInvalidResetToken   = newError(ErrBadRequest, "Invalid or expired reset token")
	ErrInvalidVerification = newError(ErrBadRequest, "Invalid verification token")
)

// WrapValidation marks a dto validation failure as an ErrValidation error.
func WrapValidation(err error) error {
	return &AccountError{Kind: ErrValidation, Msg: err.Error(), Err: err}
}

// Package common defines shared constants and sentinel errors used across
// gophgram layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Session errors.
	ErrForbidden = errors.New("bad session")

	// Auth flow errors.
	ErrInvalidAuthState = errors.New("invalid auth state")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidCode      = errors.New("invalid code")
	ErrInvalidPassword  = errors.New("invalid password")

	// Request validation errors.
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedFilter = errors.New("unsupported message filter")

	// Media errors.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	ErrNoMedia              = errors.New("message does not have media")

	// Lookup errors.
	ErrUnknownChat     = errors.New("unknown chat")
	ErrMessageNotFound = errors.New("message not found")
)

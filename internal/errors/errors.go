package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth client
var (
	// Session errors
	ErrNoSession     = errors.New("no active session")
	ErrNotFound      = errors.New("not found")
	ErrCorruptRecord = errors.New("corrupt credential record")

	// Credential errors
	ErrIncompletePair  = errors.New("access and refresh token must be set together")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrRenewalFailed   = errors.New("credential renewal failed")
	ErrUnauthenticated = errors.New("unauthenticated")

	// Transport errors
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")

	// API errors
	ErrValidation = errors.New("validation error")
	ErrServer     = errors.New("server error")

	// Configuration errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}


package authapi

import (
	"fmt"
	"net/http"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

var (
	ErrUnauthenticated = autherrors.ErrUnauthenticated
	ErrValidation      = autherrors.ErrValidation
	ErrServer          = autherrors.ErrServer
)

// APIError is a non-success response from the backend. Message is the server's
// "message" field, surfaced verbatim so callers can show it to the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("auth api: %d %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the shared sentinels: 401 is ErrUnauthenticated, 400/409/422
// are ErrValidation and 5xx is ErrServer.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest ||
			e.StatusCode == http.StatusConflict ||
			e.StatusCode == http.StatusUnprocessableEntity
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

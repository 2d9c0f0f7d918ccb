package authmodel

import "github.com/jrsteele09/go-auth-client/users"

// AuthResponse is returned by login (200) and register (201).
type AuthResponse struct {
	Message string        `json:"message,omitempty"`
	User    users.Profile `json:"user"`
	Tokens  TokenResponse `json:"tokens"`
}

// RefreshResponse is returned by a successful renewal.
type RefreshResponse struct {
	Message string        `json:"message,omitempty"`
	Tokens  TokenResponse `json:"tokens"`
}

// ProfileResponse is returned by GET /auth/me.
type ProfileResponse struct {
	User users.Profile `json:"user"`
}

// MessageResponse carries the human-readable outcome of a call, including every error.
type MessageResponse struct {
	Message string `json:"message"`
}

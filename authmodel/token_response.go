package authmodel

import (
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
)

// TokenResponse is the "tokens" object returned by login, register and refresh.
type TokenResponse struct {
	// AccessToken authorizes calls to protected endpoints.
	// Usage: Sent as "Authorization: Bearer <access_token>"
	// Lifespan: Short-lived (one hour on the reference backend)
	// The client treats it as opaque and never decodes it.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at /auth/refresh for a new pair.
	// Lifespan: Long-lived (30 days on the reference backend)
	// Security: Stored with the access token, always written and cleared with it
	RefreshToken string `json:"refresh_token"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 3600
	// Note: A hint only. Renewal is driven by 401 responses, never by this value.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// Pair converts the response into a credential pair, turning ExpiresIn into an
// absolute expiry relative to now.
func (t TokenResponse) Pair(now time.Time) credentials.Pair {
	pair := credentials.Pair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		pair.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return pair
}

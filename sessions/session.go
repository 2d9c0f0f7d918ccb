package sessions

import (
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
)

// Session is an immutable snapshot of who is logged in. User and Credentials are either
// both set or both nil.
type Session struct {
	User            *users.Profile    // Server-supplied identity
	Credentials     *credentials.Pair // Current access/refresh pair
	IsAuthenticated bool              // True iff User and Credentials are set
}

func authenticated(profile users.Profile, pair credentials.Pair) Session {
	p := profile.Clone()
	c := pair
	return Session{User: &p, Credentials: &c, IsAuthenticated: true}
}

// clone returns a copy that shares no pointers with s.
func (s Session) clone() Session {
	if !s.IsAuthenticated {
		return Session{}
	}
	return authenticated(*s.User, *s.Credentials)
}

// AccessToken returns the access token, empty when unauthenticated.
func (s Session) AccessToken() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.AccessToken
}

// RefreshToken returns the refresh token, empty when unauthenticated.
func (s Session) RefreshToken() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.RefreshToken
}

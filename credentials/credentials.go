package credentials

import (
	"context"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned by Store.Read when nothing has been persisted.
	ErrNotFound = autherrors.ErrNotFound
	// ErrIncompletePair is returned when a write carries only one of the two tokens.
	ErrIncompletePair = autherrors.ErrIncompletePair
	// ErrCorruptRecord is returned when persisted keys are only partially present or undecodable.
	ErrCorruptRecord = autherrors.ErrCorruptRecord
)

// Durable keys. Each is independently addressable but they are always written and
// cleared as one set.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyExpiresAt    = "expires_at"
)

// Keys lists every key a Store manages.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyExpiresAt}

// Pair is the access/refresh credential pair issued by the server. Both tokens are
// opaque: the client stores and forwards them, never decodes them.
type Pair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry,omitempty"` // Server's expires_in hint, informational only
}

// Valid reports whether both tokens are present.
func (p Pair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// OAuth2Token exposes the pair as a bearer token for libraries built on x/oauth2.
func (p Pair) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       p.Expiry,
	}
}

// Record is everything a Store persists: the pair and the profile it belongs to.
type Record struct {
	Pair    Pair
	Profile users.Profile
}

// Store is the durable record of the current credential pair and profile.
// Implementations must make Write and Clear atomic with respect to Read: a reader never
// observes a profile without tokens or one token without the other.
type Store interface {
	// Write persists pair and profile together, replacing any previous record.
	Write(ctx context.Context, pair Pair, profile users.Profile) error

	// Read returns the persisted record or ErrNotFound.
	Read(ctx context.Context) (Record, error)

	// Clear removes tokens and profile. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

package authtest

import (
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim, as the reference backend does.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// rejection is an error whose text is sent to the client verbatim as "message".
type rejection string

func (r rejection) Error() string { return string(r) }

const (
	errTokenInvalid rejection = "Token inválido"
	errTokenExpired rejection = "Token expirado"
	errTokenRevoked rejection = "Token de refresh inválido"
	errTokenType    rejection = "Tipo de token inválido"
)

// tokenClaims is what the server needs back out of a token.
type tokenClaims struct {
	UserID string
	Email  string
	Type   string
	JTI    string
}

// issuer signs HS256 tokens and tracks which ones are still live. Refresh tokens are
// single use: redeeming one revokes it.
type issuer struct {
	secret     []byte
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu      sync.Mutex
	live    map[string]string    // jti -> token type
	revoked map[string]rejection // jti -> reason it is no longer accepted
}

func newIssuer(secret []byte, now func() time.Time) *issuer {
	return &issuer{
		secret:     secret,
		now:        now,
		accessTTL:  time.Hour,
		refreshTTL: 30 * 24 * time.Hour,
		live:       make(map[string]string),
		revoked:    make(map[string]rejection),
	}
}

func (i *issuer) issue(a *account, tokenType string) (string, error) {
	ttl := i.accessTTL
	if tokenType == TokenTypeRefresh {
		ttl = i.refreshTTL
	}
	jti := uuid.New().String()

	claims := jwtlib.MapClaims{
		"user_id":    a.profile.ID.String(),   // Subject
		"empresa_id": a.profile.TenantID(),    // Tenant the user belongs to
		"email":      a.profile.Email,         // Login identity
		"perfil":     string(a.profile.Role),  // Role within the tenant
		"type":       tokenType,               // access or refresh
		"iat":        i.now().Unix(),          // Issued At
		"exp":        i.now().Add(ttl).Unix(), // Expiry
		"jti":        jti,                     // Unique token ID for revocation
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("[authtest issue] sign: %w", err)
	}

	i.mu.Lock()
	i.live[jti] = tokenType
	i.mu.Unlock()
	return signed, nil
}

// verify checks signature, expiry, type and revocation.
func (i *issuer) verify(raw, wantType string) (tokenClaims, error) {
	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return i.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return tokenClaims{}, errTokenInvalid
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return tokenClaims{}, errTokenInvalid
	}

	var tc tokenClaims
	tc.UserID, _ = claims["user_id"].(string)
	tc.Email, _ = claims["email"].(string)
	tc.Type, _ = claims["type"].(string)
	tc.JTI, _ = claims["jti"].(string)

	if tc.Type != wantType {
		return tokenClaims{}, errTokenType
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if reason, ok := i.revoked[tc.JTI]; ok {
		return tokenClaims{}, reason
	}
	return tc, nil
}

// redeem verifies a refresh token and revokes it in the same critical section, so two
// concurrent redemptions cannot both succeed.
func (i *issuer) redeem(raw string) (tokenClaims, error) {
	tc, err := i.verify(raw, TokenTypeRefresh)
	if err != nil {
		return tokenClaims{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if reason, ok := i.revoked[tc.JTI]; ok {
		return tokenClaims{}, reason
	}
	i.revoked[tc.JTI] = errTokenRevoked
	return tc, nil
}

// revokeAll stops accepting every live token of tokenType, reporting reason.
func (i *issuer) revokeAll(tokenType string, reason rejection) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for jti, typ := range i.live {
		if typ == tokenType {
			i.revoked[jti] = reason
		}
	}
}

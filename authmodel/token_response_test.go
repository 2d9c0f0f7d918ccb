package authmodel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/stretchr/testify/require"
)

func TestTokenResponsePair(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	pair := authmodel.TokenResponse{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: 3600}.Pair(now)
	require.Equal(t, "A1", pair.AccessToken)
	require.Equal(t, "R1", pair.RefreshToken)
	require.Equal(t, now.Add(time.Hour), pair.Expiry)

	pair = authmodel.TokenResponse{AccessToken: "A1", RefreshToken: "R1"}.Pair(now)
	require.True(t, pair.Expiry.IsZero())
}

func TestAuthResponseDecodesServerPayload(t *testing.T) {
	payload := `{
		"message": "Login realizado com sucesso",
		"user": {
			"id": "u-1",
			"nome": "Ana",
			"email": "a@b.com",
			"perfil": "admin",
			"empresa": {"id": "t-1", "nome": "Acme", "slug": "acme", "status": "ativo"}
		},
		"tokens": {"access_token": "A1", "refresh_token": "R1", "expires_in": 3600}
	}`

	var resp authmodel.AuthResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Equal(t, "Ana", resp.User.Name)
	require.Equal(t, "acme", resp.User.Company.Slug)
	require.Equal(t, "t-1", resp.User.TenantID())
	require.Equal(t, "R1", resp.Tokens.RefreshToken)
	require.Equal(t, 3600, resp.Tokens.ExpiresIn)
}

func TestAuthResponseDecodesNumericIDs(t *testing.T) {
	payload := `{
		"user": {"id": 1, "email": "a@b.com", "empresa": {"id": 7, "nome": "Acme"}},
		"tokens": {"access_token": "A1", "refresh_token": "R1"}
	}`

	var resp authmodel.AuthResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Equal(t, "1", resp.User.ID.String())
	require.Equal(t, "7", resp.User.TenantID())
	require.Equal(t, "A1", resp.Tokens.AccessToken)
}

func TestRegisterRequestWireNames(t *testing.T) {
	b, err := json.Marshal(authmodel.RegisterRequest{
		Name:        "Ana",
		Email:       "a@b.com",
		Password:    "secret1",
		CompanyName: "Acme",
		CompanySlug: "acme",
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"nome":"Ana","email":"a@b.com","password":"secret1","empresa_nome":"Acme","empresa_slug":"acme"}`, string(b))
}

package authtest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/jrsteele09/go-auth-client/internal/authtest"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, url string, in any, out any) int {
	t.Helper()
	b, err := json.Marshal(in)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func get(t *testing.T, url, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginAndProfile(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "Ana", "a@b.com", "secret1", "Acme", "acme")

	var resp authmodel.AuthResponse
	status := post(t, srv.URL+authtest.RouteAuthLogin, authmodel.LoginRequest{Email: "a@b.com", Password: "secret1"}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Ana", resp.User.Name)
	require.Equal(t, "acme", resp.User.Company.Slug)
	require.Equal(t, 3600, resp.Tokens.ExpiresIn)

	require.Equal(t, http.StatusOK, get(t, srv.URL+authtest.RouteAuthMe, resp.Tokens.AccessToken))
	require.Equal(t, http.StatusUnauthorized, get(t, srv.URL+authtest.RouteAuthMe, resp.Tokens.RefreshToken), "refresh token is not an access token")
	require.Equal(t, http.StatusUnauthorized, get(t, srv.URL+authtest.RouteAuthMe, ""))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "Ana", "a@b.com", "secret1", "Acme", "acme")

	var msg authmodel.MessageResponse
	status := post(t, srv.URL+authtest.RouteAuthLogin, authmodel.LoginRequest{Email: "a@b.com", Password: "wrong"}, &msg)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Email ou senha incorretos", msg.Message)
}

func TestRegisterValidation(t *testing.T) {
	srv := authtest.NewServer(t)

	tests := []struct {
		name string
		req  authmodel.RegisterRequest
		want string
	}{
		{"missing field", authmodel.RegisterRequest{Email: "a@b.com"}, "Todos os campos são obrigatórios"},
		{"short password", authmodel.RegisterRequest{Name: "A", Email: "a@b.com", Password: "123", CompanyName: "Acme", CompanySlug: "acme"}, "Senha deve ter pelo menos 6 caracteres"},
		{"bad slug", authmodel.RegisterRequest{Name: "A", Email: "a@b.com", Password: "secret1", CompanyName: "Acme", CompanySlug: "Acme Ltda"}, "Slug da empresa deve conter apenas letras minúsculas, números e hífens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg authmodel.MessageResponse
			require.Equal(t, http.StatusBadRequest, post(t, srv.URL+authtest.RouteAuthRegister, tt.req, &msg))
			require.Equal(t, tt.want, msg.Message)
		})
	}
}

func TestRegisterCreatesAdmin(t *testing.T) {
	srv := authtest.NewServer(t)

	var resp authmodel.AuthResponse
	req := authmodel.RegisterRequest{Name: "Ana", Email: "a@b.com", Password: "secret1", CompanyName: "Acme", CompanySlug: "acme"}
	require.Equal(t, http.StatusCreated, post(t, srv.URL+authtest.RouteAuthRegister, req, &resp))
	require.Equal(t, "admin", string(resp.User.Role))
	require.Equal(t, "ativo", resp.User.Company.Status)

	var msg authmodel.MessageResponse
	require.Equal(t, http.StatusBadRequest, post(t, srv.URL+authtest.RouteAuthRegister, req, &msg))
	require.Equal(t, "Email já está em uso", msg.Message)
}

func TestRefreshRotatesAndIsSingleUse(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "Ana", "a@b.com", "secret1", "Acme", "acme")
	pair := srv.IssuePair(t, "a@b.com")

	var resp authmodel.RefreshResponse
	require.Equal(t, http.StatusOK, post(t, srv.URL+authtest.RouteAuthRefresh, authmodel.RefreshRequest{RefreshToken: pair.RefreshToken}, &resp))
	require.NotEqual(t, pair.RefreshToken, resp.Tokens.RefreshToken)
	require.NotEqual(t, pair.AccessToken, resp.Tokens.AccessToken)

	require.Equal(t, http.StatusUnauthorized, post(t, srv.URL+authtest.RouteAuthRefresh, authmodel.RefreshRequest{RefreshToken: pair.RefreshToken}, nil))
	require.Equal(t, 2, srv.RenewCalls())
}

func TestKnobs(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "Ana", "a@b.com", "secret1", "Acme", "acme")
	pair := srv.IssuePair(t, "a@b.com")

	srv.ExpireAccessTokens()
	require.Equal(t, http.StatusUnauthorized, get(t, srv.BaseURL()+"/contatos", pair.AccessToken))

	srv.FailRenewals(http.StatusServiceUnavailable)
	require.Equal(t, http.StatusServiceUnavailable, post(t, srv.URL+authtest.RouteAuthRefresh, authmodel.RefreshRequest{RefreshToken: pair.RefreshToken}, nil))

	srv.FailRenewals(0)
	srv.RevokeRefreshTokens()
	require.Equal(t, http.StatusUnauthorized, post(t, srv.URL+authtest.RouteAuthRefresh, authmodel.RefreshRequest{RefreshToken: pair.RefreshToken}, nil))

	fresh := srv.IssuePair(t, "a@b.com")
	require.Equal(t, http.StatusOK, get(t, srv.BaseURL()+"/contatos", fresh.AccessToken))
	require.Equal(t, 1, srv.ProtectedCalls())
}

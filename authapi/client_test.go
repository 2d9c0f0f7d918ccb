package authapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/jrsteele09/go-auth-client/internal/authtest"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server *authtest.Server
	client *authapi.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	srv := authtest.NewServer(t)
	srv.AddUser(t, "Ana", "a@b.com", "secret1", "Acme", "acme")
	return &testFixture{server: srv, client: authapi.New(srv.BaseURL()+"/", nil)}
}

func TestAuthenticate(t *testing.T) {
	f := setupTestFixture(t)

	profile, pair, err := f.client.Authenticate(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "Ana", profile.Name)
	require.True(t, pair.Valid())
	require.False(t, pair.Expiry.IsZero())
}

func TestAuthenticateBadCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.client.Authenticate(context.Background(), "a@b.com", "nope")
	require.ErrorIs(t, err, authapi.ErrUnauthenticated)

	var apiErr *authapi.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Email ou senha incorretos", apiErr.Message)
	require.Zero(t, f.server.RenewCalls())
}

func TestAuthenticateMissingFieldsIsValidation(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.client.Authenticate(context.Background(), "", "")
	require.ErrorIs(t, err, authapi.ErrValidation)
	require.ErrorContains(t, err, "Email e senha são obrigatórios")
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	profile, pair, err := f.client.Register(context.Background(), authmodel.RegisterRequest{
		Name:        "Bia",
		Email:       "bia@c.com",
		Password:    "secret1",
		CompanyName: "Beta",
		CompanySlug: "beta",
	})
	require.NoError(t, err)
	require.Equal(t, "beta", profile.Company.Slug)
	require.True(t, pair.Valid())

	_, _, err = f.client.Register(context.Background(), authmodel.RegisterRequest{
		Name:        "Bia",
		Email:       "bia@c.com",
		Password:    "secret1",
		CompanyName: "Beta",
		CompanySlug: "beta-2",
	})
	require.ErrorIs(t, err, authapi.ErrValidation)
	require.ErrorContains(t, err, "Email já está em uso")
}

func TestRenew(t *testing.T) {
	f := setupTestFixture(t)
	first := f.server.IssuePair(t, "a@b.com")

	next, err := f.client.Renew(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	require.True(t, next.Valid())
	require.NotEqual(t, first.RefreshToken, next.RefreshToken)

	_, err = f.client.Renew(context.Background(), first.RefreshToken)
	require.ErrorIs(t, err, authapi.ErrUnauthenticated)
}

func TestRenewServerError(t *testing.T) {
	f := setupTestFixture(t)
	f.server.FailRenewals(http.StatusBadGateway)

	_, err := f.client.Renew(context.Background(), f.server.IssuePair(t, "a@b.com").RefreshToken)
	require.ErrorIs(t, err, authapi.ErrServer)
}

func TestProfileAndLogoutUseAuthorizedClient(t *testing.T) {
	f := setupTestFixture(t)
	pair := f.server.IssuePair(t, "a@b.com")

	authorized := f.client.Authorized(&http.Client{Transport: bearer{token: pair.AccessToken}})
	profile, err := authorized.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a@b.com", profile.Email)

	_, err = f.client.Profile(context.Background())
	require.ErrorIs(t, err, authapi.ErrUnauthenticated, "the plain client sends no token")

	require.NoError(t, authorized.Logout(context.Background()))
	require.Equal(t, 1, f.server.LogoutCalls())
}

func TestAuthenticateNumericIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api" + authapi.PathLogin:
			_, _ = w.Write([]byte(`{"user":{"id":1,"email":"a@b.com","empresa":{"id":7,"nome":"Acme"}},"tokens":{"access_token":"A1","refresh_token":"R1"}}`))
		case "/api" + authapi.PathMe:
			_, _ = w.Write([]byte(`{"user":{"id":1,"email":"a@b.com","empresa":{"id":7,"nome":"Acme"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	client := authapi.New(srv.URL+"/api", nil)

	profile, pair, err := client.Authenticate(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "1", profile.ID.String())
	require.Equal(t, "7", profile.TenantID())
	require.Equal(t, "A1", pair.AccessToken)
	require.Equal(t, "R1", pair.RefreshToken)

	profile, err = client.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1", profile.ID.String())
}

func TestURL(t *testing.T) {
	c := authapi.New("http://localhost:5000/api/", nil)
	require.Equal(t, "http://localhost:5000/api", c.BaseURL())
	require.Equal(t, "http://localhost:5000/api/contatos", c.URL("contatos"))
	require.Equal(t, "http://localhost:5000/api/contatos", c.URL("/contatos"))
}

func TestAPIErrorIs(t *testing.T) {
	require.ErrorIs(t, &authapi.APIError{StatusCode: 409}, authapi.ErrValidation)
	require.ErrorIs(t, &authapi.APIError{StatusCode: 503}, authapi.ErrServer)
	require.NotErrorIs(t, &authapi.APIError{StatusCode: 404}, authapi.ErrValidation)
	require.Equal(t, "auth api: 404 Not Found", (&authapi.APIError{StatusCode: 404}).Error())
}

type bearer struct {
	token string
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(r)
}

// Package authapi speaks the backend's authentication contract: login, registration,
// renewal, profile and logout.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/pipeline"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
)

// Endpoint paths relative to the base URL.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathMe       = "/auth/me"
	PathLogout   = "/auth/logout"
)

const maxErrorBody = 64 << 10

// Client calls the authentication endpoints. Login, registration and renewal always go
// through the plain client so their 401s never trigger a renewal; profile and logout go
// through the authorized client once one is attached.
type Client struct {
	baseURL    string
	plain      *http.Client
	authorized *http.Client
	now        func() time.Time
}

// New returns a client for baseURL, e.g. "http://localhost:5000/api".
func New(baseURL string, plain *http.Client) *Client {
	if plain == nil {
		plain = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		plain:      plain,
		authorized: plain,
		now:        time.Now,
	}
}

// Authorized returns a copy of c that sends profile and logout calls through hc,
// normally a client built on pipeline.Transport.
func (c *Client) Authorized(hc *http.Client) *Client {
	cp := *c
	cp.authorized = hc
	return &cp
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Authenticate exchanges an email and password for a profile and credential pair.
func (c *Client) Authenticate(ctx context.Context, email, password string) (users.Profile, credentials.Pair, error) {
	var resp authmodel.AuthResponse
	err := c.call(ctx, c.plain, http.MethodPost, PathLogin, authmodel.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return users.Profile{}, credentials.Pair{}, errors.Wrap(err, "[Client.Authenticate]")
	}
	return c.confirmed(resp)
}

// Register creates a tenant and its admin user, returning the new session's profile and
// pair.
func (c *Client) Register(ctx context.Context, req authmodel.RegisterRequest) (users.Profile, credentials.Pair, error) {
	var resp authmodel.AuthResponse
	if err := c.call(ctx, c.plain, http.MethodPost, PathRegister, req, &resp); err != nil {
		return users.Profile{}, credentials.Pair{}, errors.Wrap(err, "[Client.Register]")
	}
	return c.confirmed(resp)
}

// Renew exchanges refreshToken for a new pair. It satisfies renewal.Renewer.
func (c *Client) Renew(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	var resp authmodel.RefreshResponse
	if err := c.call(ctx, c.plain, http.MethodPost, PathRefresh, authmodel.RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return credentials.Pair{}, errors.Wrap(err, "[Client.Renew]")
	}
	pair := resp.Tokens.Pair(c.now())
	if !pair.Valid() {
		return credentials.Pair{}, errors.Wrap(credentials.ErrIncompletePair, "[Client.Renew] response")
	}
	return pair, nil
}

// Profile fetches the current user through the authorized client.
func (c *Client) Profile(ctx context.Context) (users.Profile, error) {
	var resp authmodel.ProfileResponse
	if err := c.call(ctx, c.authorized, http.MethodGet, PathMe, nil, &resp); err != nil {
		return users.Profile{}, errors.Wrap(err, "[Client.Profile]")
	}
	return resp.User, nil
}

// Logout tells the server the session is over. A 401 is returned as an error without
// attempting renewal.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(pipeline.SkipRenewal(ctx), c.authorized, http.MethodPost, PathLogout, nil, nil); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

func (c *Client) confirmed(resp authmodel.AuthResponse) (users.Profile, credentials.Pair, error) {
	pair := resp.Tokens.Pair(c.now())
	if !pair.Valid() {
		return users.Profile{}, credentials.Pair{}, errors.Wrap(credentials.ErrIncompletePair, "response")
	}
	return resp.User, pair, nil
}

// call sends in as JSON and decodes a 2xx body into out. Anything else becomes an
// *APIError carrying the server's message.
func (c *Client) call(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var msg authmodel.MessageResponse
	if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
		apiErr.Message = msg.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

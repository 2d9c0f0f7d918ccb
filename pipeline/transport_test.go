package pipeline_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/pipeline"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *staticTokens) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

type fakeRenewer struct {
	tokens *staticTokens
	next   string
	err    error
	calls  int
	stale  []string
}

func (r *fakeRenewer) Renew(_ context.Context, stale string) (string, error) {
	r.calls++
	r.stale = append(r.stale, stale)
	if r.err != nil {
		return "", r.err
	}
	r.tokens.set(r.next)
	return r.next, nil
}

type seen struct {
	Auth      string
	RequestID string
	Body      string
}

type testFixture struct {
	server  *httptest.Server
	tokens  *staticTokens
	renewer *fakeRenewer
	client  *http.Client

	mu       sync.Mutex
	requests []seen
	valid    string
}

// setupTestFixture starts a server accepting only "Bearer <valid>" and echoing the body.
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{valid: "A2"}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, seen{
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get(pipeline.RequestIDHeader),
			Body:      string(body),
		})
		valid := f.valid
		f.mu.Unlock()

		if r.URL.Path == "/public" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Token inválido"}`))
			return
		}
		_, _ = w.Write([]byte("ok:" + string(body)))
	}))
	t.Cleanup(f.server.Close)

	f.tokens = &staticTokens{token: "A1"}
	f.renewer = &fakeRenewer{tokens: f.tokens, next: "A2"}
	f.client = pipeline.NewClient(&pipeline.Transport{
		Tokens:  f.tokens,
		Renewer: f.renewer,
	}, 5*time.Second)
	return f
}

func (f *testFixture) seen() []seen {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seen(nil), f.requests...)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAttachesBearerWithoutMutatingRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.tokens.set("A2")

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/contacts", nil)
	require.NoError(t, err)

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	readBody(t, resp)

	require.Empty(t, req.Header.Get("Authorization"))
	got := f.seen()
	require.Len(t, got, 1)
	require.Equal(t, "Bearer A2", got[0].Auth)
	require.NotEmpty(t, got[0].RequestID)
	require.Zero(t, f.renewer.calls)
}

func TestNoTokenSendsNoAuthorization(t *testing.T) {
	f := setupTestFixture(t)
	f.tokens.set("")

	resp, err := f.client.Get(f.server.URL + "/public")
	require.NoError(t, err)
	readBody(t, resp)

	require.Empty(t, f.seen()[0].Auth)
}

func TestNon401PassesThrough(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := f.client.Get(f.server.URL + "/public")
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
	readBody(t, resp)
	require.Zero(t, f.renewer.calls)
}

func TestUnauthorizedRenewsAndReplaysOnce(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/contacts", strings.NewReader(`{"nome":"x"}`))
	require.NoError(t, err)
	req.Header.Set(pipeline.RequestIDHeader, "call-1")

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `ok:{"nome":"x"}`, readBody(t, resp))

	require.Equal(t, 1, f.renewer.calls)
	require.Equal(t, []string{"A1"}, f.renewer.stale)

	got := f.seen()
	require.Len(t, got, 2)
	require.Equal(t, "Bearer A1", got[0].Auth)
	require.Equal(t, "Bearer A2", got[1].Auth)
	require.Equal(t, "call-1", got[0].RequestID)
	require.Equal(t, "call-1", got[1].RequestID)
	require.Equal(t, got[0].Body, got[1].Body)
}

func TestReplayBuffersBodyWithoutGetBody(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/contacts", io.NopCloser(strings.NewReader("payload")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, "ok:payload", readBody(t, resp))

	got := f.seen()
	require.Len(t, got, 2)
	require.Equal(t, "payload", got[1].Body)
}

func TestSecond401IsReturnedToCaller(t *testing.T) {
	f := setupTestFixture(t)
	f.mu.Lock()
	f.valid = "never"
	f.mu.Unlock()

	resp, err := f.client.Get(f.server.URL + "/contacts")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, readBody(t, resp), "Token inválido")

	require.Equal(t, 1, f.renewer.calls)
	require.Len(t, f.seen(), 2)
}

func TestRenewalFailureIsReturned(t *testing.T) {
	f := setupTestFixture(t)
	errRenewal := errors.New("renewal failed")
	f.renewer.err = errRenewal

	_, err := f.client.Get(f.server.URL + "/contacts")
	require.ErrorIs(t, err, errRenewal)
	require.Len(t, f.seen(), 1)
}

func TestSkipRenewalPassesThrough401(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequestWithContext(pipeline.SkipRenewal(context.Background()), http.MethodPost, f.server.URL+"/auth/logout", nil)
	require.NoError(t, err)

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	readBody(t, resp)
	require.Zero(t, f.renewer.calls)
}

func TestOversizedBodyIsNotReplayed(t *testing.T) {
	f := setupTestFixture(t)
	f.client = pipeline.NewClient(&pipeline.Transport{
		Tokens:         f.tokens,
		Renewer:        f.renewer,
		MaxReplayBytes: 4,
	}, 5*time.Second)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/upload", io.NopCloser(strings.NewReader("0123456789")))
	require.NoError(t, err)

	_, err = f.client.Do(req)
	require.ErrorIs(t, err, pipeline.ErrBodyNotReplayable)
	require.Equal(t, 1, f.renewer.calls, "renewal still runs so the next call succeeds")

	got := f.seen()
	require.Len(t, got, 1)
	require.Equal(t, "0123456789", got[0].Body)
}

func TestCallMarkRetriedReturnsCopy(t *testing.T) {
	c := pipeline.Call{ID: "x"}
	retried := c.MarkRetried()

	require.False(t, c.Retried)
	require.True(t, retried.Retried)
	require.Equal(t, "x", retried.ID)
}

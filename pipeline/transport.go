// Package pipeline attaches the current access token to outgoing requests and turns a
// 401 into one renewal and one replay.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrBodyNotReplayable is returned when a 401 arrives for a request whose body was too
// large to buffer. Renewal has still happened; the caller may resend.
var ErrBodyNotReplayable = autherrors.ErrBodyNotReplayable

// DefaultMaxReplayBytes is the largest body buffered for replay.
const DefaultMaxReplayBytes = 1 << 20

// TokenReader supplies the access token to attach.
type TokenReader interface {
	AccessToken() string
}

// Renewer obtains a replacement for a rejected access token.
type Renewer interface {
	Renew(ctx context.Context, staleAccessToken string) (string, error)
}

// Transport is an http.RoundTripper that authenticates requests with the session's
// access token and renews it at most once per call when the server answers 401.
type Transport struct {
	Base           http.RoundTripper // Defaults to http.DefaultTransport
	Tokens         TokenReader
	Renewer        Renewer
	MaxReplayBytes int64           // Defaults to DefaultMaxReplayBytes
	Logger         *zerolog.Logger // Defaults to the global logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewClient returns an *http.Client that sends through t.
func NewClient(t *Transport, timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

type skipRenewalKey struct{}

// SkipRenewal marks requests made with ctx so a 401 is returned as is. Logout uses it so
// a session that is already dead can still be logged out.
func SkipRenewal(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRenewalKey{}, true)
}

func skipsRenewal(ctx context.Context) bool {
	skip, _ := ctx.Value(skipRenewalKey{}).(bool)
	return skip
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	call, err := newCall(req, t.maxReplayBytes())
	if err != nil {
		return nil, fmt.Errorf("[pipeline RoundTrip] buffer body: %w", err)
	}

	used := t.token()
	resp, err := t.send(call, used, false)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || call.Retried || t.Renewer == nil || skipsRenewal(req.Context()) {
		return resp, nil
	}

	drain(resp)
	call = call.MarkRetried()
	logger := t.logger()
	logger.Debug().Str("request_id", call.ID).Str("path", req.URL.Path).Msg("access token rejected, renewing")

	fresh, err := t.Renewer.Renew(req.Context(), used)
	if err != nil {
		return nil, err
	}
	if !call.Replayable() {
		return nil, fmt.Errorf("[pipeline RoundTrip] %s %s: %w", req.Method, req.URL.Path, ErrBodyNotReplayable)
	}
	return t.send(call, fresh, true)
}

func (t *Transport) send(call Call, token string, replay bool) (*http.Response, error) {
	out := call.Request.Clone(call.Request.Context())
	if replay && call.Request.GetBody != nil {
		body, err := call.Request.GetBody()
		if err != nil {
			return nil, fmt.Errorf("[pipeline send] replay body: %w", err)
		}
		out.Body = body
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	out.Header.Set(RequestIDHeader, call.ID)

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}
	logger := t.logger()
	logger.Debug().
		Str("request_id", call.ID).
		Str("method", out.Method).
		Str("path", out.URL.Path).
		Int("status", resp.StatusCode).
		Bool("replay", replay).
		Msg("request completed")
	return resp, nil
}

func (t *Transport) token() string {
	if t.Tokens == nil {
		return ""
	}
	return t.Tokens.AccessToken()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) maxReplayBytes() int64 {
	if t.MaxReplayBytes > 0 {
		return t.MaxReplayBytes
	}
	return DefaultMaxReplayBytes
}

func (t *Transport) logger() *zerolog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return &log.Logger
}

// drain lets the connection be reused before the body is discarded.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

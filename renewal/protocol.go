// Package renewal turns concurrent "credentials expired" signals into at most one
// renewal call at a time. Every caller that hits a 401 while a renewal is in flight
// waits for that same flight and receives its outcome.
package renewal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrRenewalFailed wraps every error returned to callers of a failed renewal.
	ErrRenewalFailed = autherrors.ErrRenewalFailed
	// ErrNoRefreshToken is the cause when the session holds nothing to renew with.
	ErrNoRefreshToken = autherrors.ErrNoRefreshToken
)

// DefaultTimeout bounds a renewal flight when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// State is the protocol's position in the renewal cycle.
type State int

const (
	Idle State = iota
	Refreshing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Renewer exchanges a refresh token for a new credential pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (credentials.Pair, error)
}

// Session is the part of the session state the protocol reads and updates.
type Session interface {
	AccessToken() string
	RefreshToken() string
	ReplaceCredentials(ctx context.Context, pair credentials.Pair) error
	Logout(ctx context.Context) error
}

// flight is one renewal attempt. token and err are written once, before done closes.
type flight struct {
	done  chan struct{}
	token string
	err   error
}

// Protocol coordinates renewals for one session.
type Protocol struct {
	session    Session
	renewer    Renewer
	timeout    time.Duration
	onTeardown func(error)
	metrics    *Metrics
	logger     zerolog.Logger

	mu     sync.Mutex
	state  State
	flight *flight
	wg     sync.WaitGroup
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithTimeout bounds each renewal flight.
func WithTimeout(d time.Duration) Option {
	return func(p *Protocol) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithOnTeardown registers fn to run once for every failed renewal, after the session
// has been cleared. It runs on the renewal goroutine and must not block.
func WithOnTeardown(fn func(error)) Option {
	return func(p *Protocol) {
		p.onTeardown = fn
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Protocol) {
		p.metrics = m
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Protocol) {
		p.logger = l
	}
}

// New returns an idle protocol for session.
func New(session Session, renewer Renewer, opts ...Option) *Protocol {
	p := &Protocol{
		session: session,
		renewer: renewer,
		timeout: DefaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports where the protocol is in the renewal cycle.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Renew returns a fresh access token to replace staleAccessToken, the token a call was
// rejected with. It joins the flight in progress if there is one. If the session already
// holds a different token, a previous renewal has replaced it and that token is returned
// without contacting the server.
//
// A call sent with a token whose session has since been torn down fails without a new
// attempt. When ctx ends first Renew returns ctx.Err(); the flight carries on for
// everyone else.
func (p *Protocol) Renew(ctx context.Context, staleAccessToken string) (string, error) {
	p.mu.Lock()
	f := p.flight
	if f == nil {
		current := p.session.AccessToken()
		switch {
		case current != "" && current != staleAccessToken:
			p.mu.Unlock()
			return current, nil
		case current == "" && staleAccessToken != "":
			// Torn down after this call was sent; that teardown already notified.
			p.mu.Unlock()
			return "", fmt.Errorf("[renewal Renew] %w: %w", ErrRenewalFailed, autherrors.ErrNoSession)
		}
		f = &flight{done: make(chan struct{})}
		p.flight = f
		p.state = Refreshing
		p.wg.Add(1)
		go p.run(context.WithoutCancel(ctx), f)
	}
	p.mu.Unlock()
	p.metrics.waiter()

	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Wait blocks until no flight is running.
func (p *Protocol) Wait() {
	p.wg.Wait()
}

func (p *Protocol) run(parent context.Context, f *flight) {
	defer p.wg.Done()
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	token, err := p.refresh(ctx)
	if err == nil {
		p.metrics.observe(OutcomeSuccess, time.Since(start))
		p.logger.Debug().Dur("took", time.Since(start)).Msg("credentials renewed")
		p.settle(f, token, nil)
		return
	}

	p.metrics.observe(outcomeOf(ctx, err), time.Since(start))
	p.logger.Warn().Err(err).Msg("credential renewal failed, tearing down session")

	p.mu.Lock()
	p.state = Failed
	p.mu.Unlock()

	teardownCtx, cancelTeardown := context.WithTimeout(context.WithoutCancel(parent), p.timeout)
	defer cancelTeardown()
	if logoutErr := p.session.Logout(teardownCtx); logoutErr != nil {
		p.logger.Err(logoutErr).Msg("clearing session after failed renewal")
	}
	if p.onTeardown != nil {
		p.onTeardown(err)
	}

	p.settle(f, "", fmt.Errorf("[renewal Renew] %w: %w", ErrRenewalFailed, err))
}

func (p *Protocol) refresh(ctx context.Context) (string, error) {
	refreshToken := p.session.RefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	pair, err := p.renewer.Renew(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if err := p.session.ReplaceCredentials(ctx, pair); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (p *Protocol) settle(f *flight, token string, err error) {
	p.mu.Lock()
	f.token, f.err = token, err
	p.flight = nil
	p.state = Idle
	p.mu.Unlock()
	close(f.done)
}

func outcomeOf(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, ErrNoRefreshToken):
		return OutcomeNoToken
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return OutcomeTimedOut
	default:
		return OutcomeFailure
	}
}

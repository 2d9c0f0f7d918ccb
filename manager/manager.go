// Package manager owns the credential lifecycle for one user: it rehydrates the session
// on start, logs in and out, and hands out an *http.Client whose requests carry the
// current access token and renew it transparently.
package manager

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/pipeline"
	"github.com/jrsteele09/go-auth-client/renewal"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager wires the session state, renewal protocol, request pipeline and API client
// around one credential store.
type Manager struct {
	cfg      config.APIConfig
	store    credentials.Store
	state    *sessions.State
	protocol *renewal.Protocol
	client   *http.Client
	api      *authapi.Client
	logger   zerolog.Logger
}

type options struct {
	logger     zerolog.Logger
	onTeardown func(error)
	registerer prometheus.Registerer
	base       http.RoundTripper
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOnTeardown registers fn to run once each time a failed renewal ends the session.
// A CLI prints a "sign in again" notice; a UI navigates to its login screen.
func WithOnTeardown(fn func(error)) Option {
	return func(o *options) {
		o.onTeardown = fn
	}
}

// WithMetrics registers the renewal metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithBaseTransport replaces http.DefaultTransport underneath every client.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// New builds a manager and rehydrates the session from store without contacting the
// server. With VerifyOnStart set, a rehydrated session is confirmed by fetching the
// profile; a session the server no longer accepts is torn down before New returns.
func New(ctx context.Context, cfg config.APIConfig, store credentials.Store, opts ...Option) (*Manager, error) {
	o := options{logger: log.Logger, base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		cfg:    cfg,
		store:  store,
		logger: o.logger,
		state:  sessions.New(store, sessions.WithLogger(o.logger)),
	}

	if _, err := m.state.Rehydrate(ctx); err != nil {
		if !errors.Is(err, credentials.ErrCorruptRecord) {
			return nil, err
		}
		m.logger.Warn().Err(err).Str("store", describeStore(store)).Msg("discarding unreadable credentials")
		if err := m.state.Logout(ctx); err != nil {
			return nil, err
		}
	}

	plain := &http.Client{Transport: o.base, Timeout: cfg.GetHTTPTimeout()}
	api := authapi.New(cfg.GetBaseURL(), plain)

	protocolOpts := []renewal.Option{
		renewal.WithTimeout(cfg.GetRenewalTimeout()),
		renewal.WithLogger(o.logger),
		renewal.WithOnTeardown(m.teardownHook(o.onTeardown)),
	}
	if o.registerer != nil {
		protocolOpts = append(protocolOpts, renewal.WithMetrics(renewal.NewMetrics(o.registerer)))
	}
	m.protocol = renewal.New(m.state, api, protocolOpts...)

	m.client = pipeline.NewClient(&pipeline.Transport{
		Base:    o.base,
		Tokens:  m.state,
		Renewer: m.protocol,
		Logger:  &m.logger,
	}, cfg.GetHTTPTimeout())
	m.api = api.Authorized(m.client)

	m.logger.Debug().
		Str("store", describeStore(store)).
		Bool("authenticated", m.state.IsAuthenticated()).
		Msg("session manager ready")

	if cfg.GetVerifyOnStart() && m.state.IsAuthenticated() {
		if _, err := m.RefreshProfile(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("verifying rehydrated session")
		}
	}
	return m, nil
}

func (m *Manager) teardownHook(next func(error)) func(error) {
	return func(err error) {
		m.logger.Warn().Err(err).Str("login_url", m.cfg.GetLoginURL()).Msg("session expired, sign in again")
		if next != nil {
			next(err)
		}
	}
}

// Login authenticates with the server and, only once it has confirmed the credentials,
// establishes the session. A rejected login leaves the current session untouched.
func (m *Manager) Login(ctx context.Context, email, password string) (sessions.Session, error) {
	profile, pair, err := m.api.Authenticate(ctx, email, password)
	if err != nil {
		return m.state.Snapshot(), err
	}
	if err := m.state.Login(ctx, profile, pair); err != nil {
		return m.state.Snapshot(), err
	}
	return m.state.Snapshot(), nil
}

// Register creates a tenant and admin account and logs straight into it.
func (m *Manager) Register(ctx context.Context, req authmodel.RegisterRequest) (sessions.Session, error) {
	profile, pair, err := m.api.Register(ctx, req)
	if err != nil {
		return m.state.Snapshot(), err
	}
	if err := m.state.Login(ctx, profile, pair); err != nil {
		return m.state.Snapshot(), err
	}
	return m.state.Snapshot(), nil
}

// Logout notifies the server when there is a session to end, then clears it locally
// whatever the server said.
func (m *Manager) Logout(ctx context.Context) error {
	if m.state.IsAuthenticated() {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}
	return m.state.Logout(ctx)
}

// RefreshProfile fetches the profile through the authorized client and stores it.
func (m *Manager) RefreshProfile(ctx context.Context) (users.Profile, error) {
	profile, err := m.api.Profile(ctx)
	if err != nil {
		return users.Profile{}, err
	}
	if err := m.state.ReplaceProfile(ctx, profile); err != nil {
		return users.Profile{}, err
	}
	return profile.Clone(), nil
}

// UpdateProfile merges a local profile edit into the session and persists it.
func (m *Manager) UpdateProfile(ctx context.Context, u users.ProfileUpdate) (users.Profile, error) {
	return m.state.UpdateProfile(ctx, u)
}

// HTTPClient returns the client every application request should use.
func (m *Manager) HTTPClient() *http.Client {
	return m.client
}

// NewRequest builds a request for path relative to the API base URL.
func (m *Manager) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, m.api.URL(path), body)
}

// Do sends req through the authorized client.
func (m *Manager) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

// Session returns the current session snapshot.
func (m *Manager) Session() sessions.Session {
	return m.state.Snapshot()
}

// Subscribe forwards to sessions.State.Subscribe.
func (m *Manager) Subscribe() (<-chan sessions.Session, func()) {
	return m.state.Subscribe()
}

// RenewalState reports the renewal protocol's current state.
func (m *Manager) RenewalState() renewal.State {
	return m.protocol.State()
}

// Close waits for an in-flight renewal and closes the store if it holds a connection.
func (m *Manager) Close() error {
	m.protocol.Wait()
	if c, ok := m.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

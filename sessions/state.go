package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-client/credentials"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned by mutations that need an authenticated session.
var ErrNoSession = autherrors.ErrNoSession

// State is the single source of truth for the current session. Every mutation writes the
// credential store and swaps the in-memory snapshot while holding one lock, so readers
// never see a half-applied transition and store and memory never disagree.
type State struct {
	store  credentials.Store
	logger zerolog.Logger

	mu      sync.Mutex // serializes mutations, held across store I/O
	current atomic.Pointer[Session]

	subMu  sync.Mutex
	subs   map[int]chan Session
	nextID int
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for state transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}

// New returns an empty session backed by store.
func New(store credentials.Store, opts ...Option) *State {
	s := &State{
		store:  store,
		logger: log.Logger,
		subs:   make(map[int]chan Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Session{})
	return s
}

// Rehydrate loads the persisted record, if any, without contacting the server. An empty
// store yields the unauthenticated session and no error.
func (s *State) Rehydrate(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Read(ctx)
	if errors.Is(err, credentials.ErrNotFound) {
		s.swap(Session{})
		return Session{}, nil
	}
	if err != nil {
		s.swap(Session{})
		return Session{}, fmt.Errorf("[sessions Rehydrate] read store: %w", err)
	}

	next := authenticated(rec.Profile, rec.Pair)
	s.swap(next)
	s.logger.Info().Str("user_id", rec.Profile.ID.String()).Msg("session rehydrated")
	return next.clone(), nil
}

// Login persists server-confirmed credentials and profile, then makes them current. If
// the store write fails the session is left as it was.
func (s *State) Login(ctx context.Context, profile users.Profile, pair credentials.Pair) error {
	if !pair.Valid() {
		return credentials.ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Write(ctx, pair, profile); err != nil {
		return fmt.Errorf("[sessions Login] write store: %w", err)
	}
	s.swap(authenticated(profile, pair))
	s.logger.Info().Str("user_id", profile.ID.String()).Msg("session established")
	return nil
}

// Logout clears the store and the session. Memory is cleared even when the store clear
// fails; the error is still returned.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.Clear(ctx)
	s.swap(Session{})
	if err != nil {
		s.logger.Err(err).Msg("clearing credential store")
		return fmt.Errorf("[sessions Logout] clear store: %w", err)
	}
	s.logger.Info().Msg("session cleared")
	return nil
}

// UpdateProfile merges u into the current profile and persists it with the unchanged
// pair.
func (s *State) UpdateProfile(ctx context.Context, u users.ProfileUpdate) (users.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if !cur.IsAuthenticated {
		return users.Profile{}, ErrNoSession
	}

	merged := cur.User.Merge(u)
	if err := s.store.Write(ctx, *cur.Credentials, merged); err != nil {
		return users.Profile{}, fmt.Errorf("[sessions UpdateProfile] write store: %w", err)
	}
	s.swap(authenticated(merged, *cur.Credentials))
	return merged.Clone(), nil
}

// ReplaceProfile swaps in a freshly fetched profile, keeping the pair.
func (s *State) ReplaceProfile(ctx context.Context, profile users.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if !cur.IsAuthenticated {
		return ErrNoSession
	}

	if err := s.store.Write(ctx, *cur.Credentials, profile); err != nil {
		return fmt.Errorf("[sessions ReplaceProfile] write store: %w", err)
	}
	s.swap(authenticated(profile, *cur.Credentials))
	return nil
}

// ReplaceCredentials installs a renewed pair for the current user. It fails with
// ErrNoSession when the session was torn down while the renewal was in flight.
func (s *State) ReplaceCredentials(ctx context.Context, pair credentials.Pair) error {
	if !pair.Valid() {
		return credentials.ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	if !cur.IsAuthenticated {
		return ErrNoSession
	}

	if err := s.store.Write(ctx, pair, *cur.User); err != nil {
		return fmt.Errorf("[sessions ReplaceCredentials] write store: %w", err)
	}
	s.swap(authenticated(*cur.User, pair))
	s.logger.Debug().Str("user_id", cur.User.ID.String()).Msg("credentials replaced")
	return nil
}

// Snapshot returns a copy of the current session.
func (s *State) Snapshot() Session {
	return s.current.Load().clone()
}

func (s *State) AccessToken() string {
	return s.current.Load().AccessToken()
}

func (s *State) RefreshToken() string {
	return s.current.Load().RefreshToken()
}

func (s *State) IsAuthenticated() bool {
	return s.current.Load().IsAuthenticated
}

// TokenSource exposes the current access token to libraries built on x/oauth2. The
// token follows renewals; it is read fresh on every call.
func (s *State) TokenSource() oauth2.TokenSource {
	return tokenSource{state: s}
}

type tokenSource struct {
	state *State
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	cur := ts.state.current.Load()
	if !cur.IsAuthenticated {
		return nil, ErrNoSession
	}
	return cur.Credentials.OAuth2Token(), nil
}

// swap must be called with mu held.
func (s *State) swap(next Session) {
	s.current.Store(&next)
	s.publish(next)
}

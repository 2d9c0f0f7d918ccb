// Package authtest runs an in-process stand-in for the authentication backend. It
// implements the login, register, refresh, profile and logout contract plus a generic
// protected route, with knobs for expiring and revoking tokens and slowing or failing
// renewals.
package authtest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authmodel"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
)

// Route paths served under /api.
const (
	RoutePrefix       = "/api"
	RouteAuthLogin    = RoutePrefix + "/auth/login"
	RouteAuthRegister = RoutePrefix + "/auth/register"
	RouteAuthRefresh  = RoutePrefix + "/auth/refresh"
	RouteAuthMe       = RoutePrefix + "/auth/me"
	RouteAuthLogout   = RoutePrefix + "/auth/logout"
)

// Request is one call the server received.
type Request struct {
	Method        string
	Path          string
	RequestID     string
	Authorization string
}

type claimsKey struct{}

// Server is the fake backend. Its zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mux    *http.ServeMux
	issuer *issuer
	dir    *directory

	renewCalls     atomic.Int32
	profileCalls   atomic.Int32
	logoutCalls    atomic.Int32
	protectedCalls atomic.Int32

	mu          sync.Mutex
	renewDelay  time.Duration
	renewStatus int
	requests    []Request
}

// NewServer starts a fake backend that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		mux:    http.NewServeMux(),
		issuer: newIssuer([]byte("authtest-"+t.Name()), time.Now),
		dir:    newDirectory(),
	}
	s.initRoutes()
	s.Server = httptest.NewServer(s.recordMiddleware(s.mux.ServeHTTP))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteAuthLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST "+RouteAuthRegister, s.RegisterHandler())
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, s.RefreshHandler())
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.RequireAccessToken))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, s.LogoutHandler())

	// Everything else under /api stands in for the application's protected resources.
	s.RegisterRouteFunc(RoutePrefix+"/", ChainMiddleware(s.ProtectedEchoHandler(), s.RequireAccessToken))
}

// RegisterRouteFunc adds a handler for a ServeMux pattern.
func (s *Server) RegisterRouteFunc(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, fn)
}

// ChainMiddleware wraps routeFunction so mw[0] runs first.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + RoutePrefix
}

// AddUser registers an account directly, bypassing the HTTP contract.
func (s *Server) AddUser(t testing.TB, name, email, password, companyName, companySlug string) users.Profile {
	t.Helper()
	a, err := s.dir.register(name, email, password, companyName, companySlug)
	if err != nil {
		t.Fatalf("authtest AddUser: %v", err)
	}
	return a.profile.Clone()
}

// IssuePair mints a live pair for email, as if the user had logged in earlier.
func (s *Server) IssuePair(t testing.TB, email string) credentials.Pair {
	t.Helper()
	a, ok := s.dir.byEmail(email)
	if !ok {
		t.Fatalf("authtest IssuePair: unknown user %q", email)
	}
	tokens, err := s.tokensFor(a)
	if err != nil {
		t.Fatalf("authtest IssuePair: %v", err)
	}
	return tokens.Pair(time.Now())
}

// ExpireAccessTokens makes every access token issued so far answer 401.
func (s *Server) ExpireAccessTokens() {
	s.issuer.revokeAll(TokenTypeAccess, errTokenExpired)
}

// RevokeRefreshTokens makes every refresh token issued so far fail renewal.
func (s *Server) RevokeRefreshTokens() {
	s.issuer.revokeAll(TokenTypeRefresh, errTokenRevoked)
}

// SetRenewDelay holds each renewal for d before answering.
func (s *Server) SetRenewDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewDelay = d
}

// FailRenewals makes renewals answer status. Zero restores normal behaviour.
func (s *Server) FailRenewals(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renewStatus = status
}

func (s *Server) RenewCalls() int     { return int(s.renewCalls.Load()) }
func (s *Server) ProfileCalls() int   { return int(s.profileCalls.Load()) }
func (s *Server) LogoutCalls() int    { return int(s.logoutCalls.Load()) }
func (s *Server) ProtectedCalls() int { return int(s.protectedCalls.Load()) }

// Requests returns every request received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) recordMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			RequestID:     r.Header.Get("X-Request-ID"),
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next(w, r)
	}
}

// RequireAccessToken rejects requests without a live bearer access token.
func (s *Server) RequireAccessToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeMessage(w, http.StatusUnauthorized, "Token de acesso requerido")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeMessage(w, http.StatusUnauthorized, "Token malformado")
			return
		}
		claims, err := s.issuer.verify(raw, TokenTypeAccess)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authmodel.LoginRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "Email e senha são obrigatórios")
			return
		}

		a, err := s.dir.authenticate(req.Email, req.Password)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.dir.touch(req.Email, time.Now().UTC().Format(time.RFC3339))

		tokens, err := s.tokensFor(a)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Erro interno do servidor")
			return
		}
		profile, _ := s.dir.profile(req.Email)
		writeJSON(w, http.StatusOK, authmodel.AuthResponse{
			Message: "Login realizado com sucesso",
			User:    profile,
			Tokens:  tokens,
		})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authmodel.RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Name == "" || req.Email == "" || req.Password == "" || req.CompanyName == "" || req.CompanySlug == "" {
			writeMessage(w, http.StatusBadRequest, "Todos os campos são obrigatórios")
			return
		}
		if len(req.Password) < minPasswordLength {
			writeMessage(w, http.StatusBadRequest, "Senha deve ter pelo menos 6 caracteres")
			return
		}
		if !slugPattern.MatchString(req.CompanySlug) {
			writeMessage(w, http.StatusBadRequest, "Slug da empresa deve conter apenas letras minúsculas, números e hífens")
			return
		}

		a, err := s.dir.register(req.Name, req.Email, req.Password, req.CompanyName, req.CompanySlug)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		tokens, err := s.tokensFor(a)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Erro interno do servidor")
			return
		}
		writeJSON(w, http.StatusCreated, authmodel.AuthResponse{
			Message: "Registro realizado com sucesso",
			User:    a.profile.Clone(),
			Tokens:  tokens,
		})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renewCalls.Add(1)

		var req authmodel.RefreshRequest
		if !decode(w, r, &req) {
			return
		}
		if req.RefreshToken == "" {
			writeMessage(w, http.StatusBadRequest, "Refresh token é obrigatório")
			return
		}

		s.mu.Lock()
		delay, status := s.renewDelay, s.renewStatus
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeMessage(w, status, "Falha ao renovar token")
			return
		}

		claims, err := s.issuer.redeem(req.RefreshToken)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		a, ok := s.dir.byEmail(claims.Email)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Usuário inativo ou não encontrado")
			return
		}
		tokens, err := s.tokensFor(a)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Erro interno do servidor")
			return
		}
		writeJSON(w, http.StatusOK, authmodel.RefreshResponse{
			Message: "Token renovado com sucesso",
			Tokens:  tokens,
		})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.profileCalls.Add(1)

		claims := r.Context().Value(claimsKey{}).(tokenClaims)
		profile, ok := s.dir.profile(claims.Email)
		if !ok {
			writeMessage(w, http.StatusNotFound, "Usuário não encontrado")
			return
		}
		writeJSON(w, http.StatusOK, authmodel.ProfileResponse{User: profile})
	}
}

// LogoutHandler always succeeds; tokens are stateless on the reference backend.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logoutCalls.Add(1)
		writeMessage(w, http.StatusOK, "Logout realizado com sucesso")
	}
}

// ProtectedEchoHandler answers any authorized call with what it received.
func (s *Server) ProtectedEchoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.protectedCalls.Add(1)

		body, _ := io.ReadAll(r.Body)
		claims := r.Context().Value(claimsKey{}).(tokenClaims)
		writeJSON(w, http.StatusOK, EchoResponse{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, RoutePrefix),
			Body:   string(body),
			UserID: claims.UserID,
		})
	}
}

// EchoResponse is the body returned by protected routes.
type EchoResponse struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Body   string `json:"body"`
	UserID string `json:"user_id"`
}

func (s *Server) tokensFor(a *account) (authmodel.TokenResponse, error) {
	access, err := s.issuer.issue(a, TokenTypeAccess)
	if err != nil {
		return authmodel.TokenResponse{}, err
	}
	refresh, err := s.issuer.issue(a, TokenTypeRefresh)
	if err != nil {
		return authmodel.TokenResponse{}, err
	}
	return authmodel.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.issuer.accessTTL.Seconds()),
	}, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Dados não fornecidos")
		return false
	}
	return true
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, authmodel.MessageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

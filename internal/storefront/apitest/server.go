// Package apitest is an in-process fake of the storefront API for tests.
// It speaks the same envelope format and issues real (HS256) JWTs.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/httpx"
	"github.com/aussiebroadwan/storefront/pkg/idx"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the server-side session cookie set on login.
const SessionCookie = "storefront_session"

var signingKey = []byte("apitest-signing-key")

type account struct {
	user     storefrontsdk.User
	password string
}

// Server is a fake storefront API. Zero failure settings mean healthy.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	users    map[string]*account // by id
	tokens   map[string]string   // token -> user id
	carts    map[string]*storefrontsdk.Cart

	oauthUserID   string
	rotate        bool
	refreshStatus int
	cartStatus    map[string]int
	cartDelay     map[string]chan struct{}

	refreshCalls int
	cartCalls    map[string]int
	lastAuth     string
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		accounts:   make(map[string]*account),
		users:      make(map[string]*account),
		tokens:     make(map[string]string),
		carts:      make(map[string]*storefrontsdk.Cart),
		cartStatus: make(map[string]int),
		cartDelay:  make(map[string]chan struct{}),
		cartCalls:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/{provider}", s.handleOAuth)
	r.Get("/carts/user/{id}", s.handleCart)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(u storefrontsdk.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &account{user: u, password: password}
	s.accounts[u.Email] = a
	s.users[u.ID] = a
}

// IssueToken mints a valid token for userID.
func (s *Server) IssueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

func (s *Server) issueLocked(userID string) string {
	now := time.Now()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			ID:        idx.New().String(),
		},
	}
	if a, ok := s.users[userID]; ok {
		claims.Role = a.user.Role
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.tokens[token] = userID
	return token
}

// RevokeToken makes token unknown to the server.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SetCart sets the cart returned for userID.
func (s *Server) SetCart(userID string, cart *storefrontsdk.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = cart
}

// SetOAuthUser selects who completes a social login.
func (s *Server) SetOAuthUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oauthUserID = userID
}

// RotateTokens makes refresh issue a new token each time.
func (s *Server) RotateTokens(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate = on
}

// FailRefresh makes refresh answer with status; 0 restores normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// FailCart makes the cart endpoint for userID answer with status.
func (s *Server) FailCart(userID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartStatus[userID] = status
}

// HoldCart blocks cart requests for userID until the returned func is called.
func (s *Server) HoldCart(userID string) (release func()) {
	ch := make(chan struct{})

	s.mu.Lock()
	s.cartDelay[userID] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *Server) CartCalls(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartCalls[userID]
}

// LastAuthorization is the Authorization header of the last request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// authenticate resolves the caller from the bearer token, then the cookie.
func (s *Server) authenticate(r *http.Request) (*account, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAuth = r.Header.Get("Authorization")

	candidates := []string{httpx.BearerToken(r)}
	if c, err := r.Cookie(SessionCookie); err == nil {
		candidates = append(candidates, c.Value)
	}

	for _, token := range candidates {
		if token == "" {
			continue
		}
		if uid, ok := s.tokens[token]; ok {
			return s.users[uid], token
		}
	}
	return nil, ""
}

type sessionData struct {
	User        storefrontsdk.User `json:"data"`
	AccessToken string             `json:"accessToken,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.refreshCalls++
	status := s.refreshStatus
	s.mu.Unlock()

	if status != 0 {
		httpx.WriteFailure(w, status, "refresh unavailable")
		return
	}

	acct, _ := s.authenticate(r)
	if acct == nil {
		httpx.WriteBearerError(w, "invalid or missing credential")
		return
	}

	data := sessionData{User: acct.user}

	s.mu.Lock()
	if s.rotate {
		data.AccessToken = s.issueLocked(acct.user.ID)
	}
	s.mu.Unlock()

	httpx.WriteSuccess(w, http.StatusOK, data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req storefrontsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	if !ok || acct.password != req.Password {
		s.mu.Unlock()
		httpx.WriteFailure(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token := s.issueLocked(acct.user.ID)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	httpx.WriteSuccess(w, http.StatusOK, sessionData{User: acct.user, AccessToken: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, token := s.authenticate(r); token != "" {
		s.RevokeToken(token)
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	httpx.WriteSuccess(w, http.StatusOK, nil)
}

// handleOAuth completes the provider dance immediately and redirects back
// with a token for the configured OAuth user.
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect_uri")
	if redirect == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "redirect_uri is required")
		return
	}

	s.mu.Lock()
	uid := s.oauthUserID
	var token string
	if uid != "" {
		token = s.issueLocked(uid)
	}
	s.mu.Unlock()

	params := url.Values{}
	if token == "" {
		params.Set("error", "access_denied")
		params.Set("error_description", "no oauth user configured")
	} else {
		params.Set("token", token)
	}
	http.Redirect(w, r, redirect+"?"+params.Encode(), http.StatusFound)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	s.mu.Lock()
	s.cartCalls[userID]++
	status := s.cartStatus[userID]
	hold := s.cartDelay[userID]
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		httpx.WriteFailure(w, status, "cart unavailable")
		return
	}

	acct, _ := s.authenticate(r)
	if acct == nil {
		httpx.WriteBearerError(w, "invalid or missing credential")
		return
	}
	if acct.user.ID != userID && acct.user.Role != "admin" {
		httpx.WriteFailure(w, http.StatusForbidden, "not your cart")
		return
	}

	s.mu.Lock()
	cart := s.carts[userID]
	s.mu.Unlock()

	if cart == nil {
		cart = &storefrontsdk.Cart{UserID: userID, Items: []storefrontsdk.CartItem{}}
	}
	httpx.WriteSuccess(w, http.StatusOK, cart)
}

// Package session keeps the client-side authentication session: the current
// user, the bearer token, the tri-state auth status and the user's cart.
//
// All mutations go through a single transition function. After each one the
// dependent effects run in order, in the mutating goroutine:
//
//  1. header binder, when the access token changed
//  2. cart synchroniser, when the user id changed
//  3. subscribers, when anything changed
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
)

// DefaultOAuthCallbackPath is the route that owns the OAuth token hand-off.
const DefaultOAuthCallbackPath = "/oauth-callback"

// API is the part of the storefront API the session depends on.
type API interface {
	RefreshSession(ctx context.Context) (*storefrontsdk.SessionResult, error)
	GetCartByUser(ctx context.Context, userID string) (*storefrontsdk.Cart, error)
	Login(ctx context.Context, req storefrontsdk.LoginRequest) (*storefrontsdk.SessionResult, error)
	Logout(ctx context.Context) error
}

// HeaderBinder is the HTTP client's default Authorization header.
type HeaderBinder interface {
	SetBearerToken(token string)
	ClearBearerToken()
}

type Options struct {
	API     API
	Headers HeaderBinder
	Store   store.Store

	// Optional
	Logger            *slog.Logger
	Metrics           metrics.Recorder
	OAuthCallbackPath string
}

// Coordinator owns the session state. Construct one per application with New
// and pass it by reference to whatever needs the session.
type Coordinator struct {
	api          API
	headers      HeaderBinder
	store        store.Store
	logger       *slog.Logger
	metrics      metrics.Recorder
	callbackPath string

	mu    sync.RWMutex
	state State

	// logouts counts Logout calls; guarded by mu
	logouts uint64

	// persistMu serialises every write of the token to the store with Logout
	persistMu sync.Mutex

	bootMu      sync.Mutex
	initialized atomic.Bool

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates a Coordinator in the initial state: no user, no token, unknown status.
func New(opts Options) (*Coordinator, error) {
	if opts.API == nil || opts.Headers == nil || opts.Store == nil {
		return nil, fmt.Errorf("session: API, Headers and Store are required")
	}

	c := &Coordinator{
		api:          opts.API,
		headers:      opts.Headers,
		store:        opts.Store,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		callbackPath: opts.OAuthCallbackPath,
		subs:         make(map[int]func(State)),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "session")
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if c.callbackPath == "" {
		c.callbackPath = DefaultOAuthCallbackPath
	}

	c.metrics.RecordStatus(StatusUnknown.String())
	return c, nil
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Subscribe registers fn to be called with a snapshot after every change.
// fn runs in the goroutine that made the change and must not block.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// SetUser injects a user directly, as login flows do. A non-nil user makes
// the session logged in; clearing the user drops a logged-in status to
// logged out so a logged-in session always has a user.
func (c *Coordinator) SetUser(ctx context.Context, user *storefrontsdk.User) {
	c.update(ctx, func(s *State) {
		s.User = user
		switch {
		case user != nil:
			s.Status = StatusLoggedIn
		case s.Status == StatusLoggedIn:
			s.Status = StatusLoggedOut
		}
	})
}

// SetAccessToken injects a token directly. The header binder persists it.
func (c *Coordinator) SetAccessToken(ctx context.Context, token string) {
	c.update(ctx, func(s *State) { s.AccessToken = token })
}

// SetCart replaces the cart, e.g. after a screen mutated it.
func (c *Coordinator) SetCart(ctx context.Context, cart *storefrontsdk.Cart) {
	c.update(ctx, func(s *State) { s.Cart = cart })
}

// update is the single state-transition function. fn mutates the state under
// the lock; effects run after it is released.
func (c *Coordinator) update(ctx context.Context, fn func(*State)) {
	prev, next := c.transition(fn)
	c.effects(ctx, prev, next)
}

func (c *Coordinator) transition(fn func(*State)) (prev, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev = c.state
	fn(&c.state)
	if c.state.UserID() != prev.UserID() && c.state.Cart == prev.Cart {
		// A cart never outlives the user it belongs to
		c.state.Cart = nil
	}
	return prev, c.state
}

func (c *Coordinator) effects(ctx context.Context, prev, next State) {
	if next.same(prev) {
		return
	}

	if next.Status != prev.Status {
		c.logger.Info("session status changed", "from", prev.Status.String(), "to", next.Status.String())
		c.metrics.RecordStatus(next.Status.String())
	}

	if next.AccessToken != prev.AccessToken {
		c.bindHeader(ctx)
	}

	if uid := next.UserID(); uid != prev.UserID() && uid != "" {
		// Failures are logged and swallowed by the synchroniser
		_ = c.syncCart(ctx, uid)
	}

	c.notify()
}

func (c *Coordinator) notify() {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

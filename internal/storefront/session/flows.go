package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
)

// ErrSessionNotEstablished is returned by CompleteOAuth when the API did not
// accept the token it just handed out.
var ErrSessionNotEstablished = errors.New("session: oauth token was not accepted")

// Login authenticates with password credentials and injects the resulting
// user and token directly, without a refresh round trip. Unlike Refresh it
// reports failures; the state is untouched when it fails.
func (c *Coordinator) Login(ctx context.Context, email, password string) error {
	res, err := c.api.Login(ctx, storefrontsdk.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if res.AccessToken != "" {
		if err := c.persistToken(ctx, res.AccessToken); err != nil {
			return fmt.Errorf("login: persist token: %w", err)
		}
	}

	c.update(ctx, func(s *State) {
		s.User = res.User
		if res.AccessToken != "" {
			s.AccessToken = res.AccessToken
		}
		s.Status = StatusLoggedIn
	})

	c.logger.Info("logged in", "user_id", res.User.ID)
	return nil
}

// CompleteOAuth finishes a social login from the callback URL the API
// redirected to: the token is persisted and bound, then the session is
// refreshed to learn who it belongs to.
func (c *Coordinator) CompleteOAuth(ctx context.Context, callbackURL string) error {
	token, err := storefrontsdk.ParseOAuthCallback(callbackURL)
	if err != nil {
		return fmt.Errorf("oauth: %w", err)
	}

	if err := c.persistToken(ctx, token); err != nil {
		return fmt.Errorf("oauth: persist token: %w", err)
	}
	c.SetAccessToken(ctx, token)

	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionNotEstablished, err)
	}

	c.logger.Info("oauth login completed", "user_id", c.Snapshot().UserID())
	return nil
}

// Logout ends the session. The server-side logout is best effort; the local
// credential is always removed, which is what takes the session to logged
// out. If the token cannot be removed the session is left as it is.
//
// The delete and the state change happen under persistMu, so no token write
// can land between them, and a refresh still in flight is discarded.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn("server logout failed", "error", err)
	}

	c.persistMu.Lock()
	if err := c.store.Delete(ctx, store.AccessTokenKey); err != nil {
		c.persistMu.Unlock()
		return fmt.Errorf("logout: remove token: %w", err)
	}
	prev, next := c.transition(func(s *State) {
		c.logouts++
		s.User = nil
		s.AccessToken = ""
		s.Status = StatusLoggedOut
		s.Cart = nil
	})
	c.persistMu.Unlock()

	c.effects(ctx, prev, next)

	c.logger.Info("logged out")
	return nil
}

package session

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// bindHeader mirrors the latest in-memory token onto the HTTP client.
//
// A set token is bound and re-persisted. An empty token only unbinds the
// header once the store is confirmed empty, so a transient empty value in
// memory never strips a persisted credential from outgoing requests.
//
// The token is read under persistMu: once Logout has deleted the stored
// token, a binder that was waiting sees the empty token and writes nothing.
func (c *Coordinator) bindHeader(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	token := c.Snapshot().AccessToken

	if token != "" {
		c.headers.SetBearerToken(token)
		if err := c.store.Set(ctx, store.AccessTokenKey, token); err != nil {
			c.logger.Warn("failed to persist access token", "error", err)
		}
		c.logToken(token)
		return
	}

	_, err := c.store.Get(ctx, store.AccessTokenKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.headers.ClearBearerToken()
		c.logger.Debug("authorization header cleared")
	case err != nil:
		c.logger.Warn("token store unreadable, keeping authorization header", "error", err)
	default:
		c.logger.Debug("token still persisted, keeping authorization header")
	}
}

// logToken logs what can safely be said about a token. Opaque tokens are fine.
func (c *Coordinator) logToken(token string) {
	info, err := jwtx.Inspect(token)
	if err != nil {
		c.logger.Debug("authorization header bound")
		return
	}
	c.logger.Debug("authorization header bound",
		"subject", info.Subject,
		"expires_at", info.ExpiresAt,
	)
}

// persistToken writes token to the store, serialised with Logout.
func (c *Coordinator) persistToken(ctx context.Context, token string) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	return c.store.Set(ctx, store.AccessTokenKey, token)
}

// storedToken reads the persisted token. found is false with a nil error only
// when the store is confirmed empty.
func (c *Coordinator) storedToken(ctx context.Context) (token string, found bool, err error) {
	token, err = c.store.Get(ctx, store.AccessTokenKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

package session

import (
	"context"

	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
)

// Refresh exchanges the ambient credential for an authoritative user and
// token. It never fails from the caller's point of view; the outcome is the
// resulting state.
//
// On failure the session is only cleared when no token is persisted. With a
// token still in the store the user and status are left as they were, so a
// network blip does not log anyone out. A revoked token therefore keeps the
// session until the token is removed from the store.
func (c *Coordinator) Refresh(ctx context.Context) {
	_ = c.refresh(ctx)
}

func (c *Coordinator) refresh(ctx context.Context) error {
	c.mu.RLock()
	logouts := c.logouts
	c.mu.RUnlock()

	res, err := c.api.RefreshSession(ctx)
	if err == nil {
		// A rotated token is persisted by the header binder
		discarded := false
		c.update(ctx, func(s *State) {
			if c.logouts != logouts {
				discarded = true
				return
			}
			s.User = res.User
			if res.AccessToken != "" {
				s.AccessToken = res.AccessToken
			}
			s.Status = StatusLoggedIn
		})

		if discarded {
			c.logger.Info("discarded session refresh that raced a logout")
			c.metrics.RecordRefresh(metrics.RefreshDiscarded)
			return nil
		}
		c.metrics.RecordRefresh(metrics.RefreshSuccess)
		return nil
	}

	token, found, storeErr := c.storedToken(ctx)
	switch {
	case storeErr != nil:
		// Not confirmed empty: behave as if the credential is still there
		c.logger.Warn("session refresh failed and token store unreadable",
			"error", err,
			"store_error", storeErr,
		)
		c.metrics.RecordRefresh(metrics.RefreshRetained)

	case found:
		c.logger.Info("session refresh failed, keeping persisted credential", "error", err)
		c.update(ctx, func(s *State) { s.AccessToken = token })
		c.metrics.RecordRefresh(metrics.RefreshRetained)

	default:
		c.logger.Info("session refresh failed without credential, logging out", "error", err)
		c.update(ctx, func(s *State) {
			s.User = nil
			s.AccessToken = ""
			s.Status = StatusLoggedOut
		})
		c.metrics.RecordRefresh(metrics.RefreshLoggedOut)
	}

	return err
}

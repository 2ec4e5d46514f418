package session

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
)

// ErrNoUser is returned by FetchCart when nobody is identified.
var ErrNoUser = errors.New("session: no current user")

// FetchCart re-fetches the current user's cart. Unlike the automatic
// synchroniser it returns the failure, so a screen that just mutated the cart
// can report it. The state is left untouched on failure.
func (c *Coordinator) FetchCart(ctx context.Context) error {
	uid := c.Snapshot().UserID()
	if uid == "" {
		return ErrNoUser
	}
	return c.syncCart(ctx, uid)
}

// syncCart fetches the cart of userID and installs it, unless the user has
// changed while the request was in flight.
func (c *Coordinator) syncCart(ctx context.Context, userID string) error {
	cart, err := c.api.GetCartByUser(ctx, userID)
	if err != nil {
		c.metrics.RecordCartSync(metrics.CartFailure)
		c.logger.Warn("cart fetch failed", "user_id", userID, "error", err)
		return err
	}

	stale := false
	c.update(ctx, func(s *State) {
		if s.UserID() != userID {
			stale = true
			return
		}
		s.Cart = cart
	})

	if stale {
		c.metrics.RecordCartSync(metrics.CartStale)
		c.logger.Debug("discarded cart of previous user", "user_id", userID)
		return nil
	}

	c.metrics.RecordCartSync(metrics.CartSuccess)
	return nil
}

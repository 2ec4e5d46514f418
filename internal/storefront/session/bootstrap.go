package session

import (
	"context"
	"net/url"
	"strings"
)

// Bootstrap restores the session from the token store. It runs once per
// Coordinator; later calls return immediately. Every path, including a skip,
// marks the coordinator initialized.
//
// currentPath is the route the application starts on. On the OAuth callback
// route nothing is restored: that route owns the token hand-off.
func (c *Coordinator) Bootstrap(ctx context.Context, currentPath string) {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	if c.initialized.Load() {
		return
	}
	defer c.initialized.Store(true)

	if c.isCallbackPath(currentPath) {
		c.logger.Debug("bootstrap skipped on oauth callback route", "path", currentPath)
		return
	}

	token, found, err := c.storedToken(ctx)
	if err != nil {
		c.logger.Warn("token store unreadable at bootstrap, starting logged out", "error", err)
	}
	if !found {
		c.update(ctx, func(s *State) {
			s.User = nil
			s.AccessToken = ""
			s.Status = StatusLoggedOut
		})
		return
	}

	c.update(ctx, func(s *State) { s.AccessToken = token })

	// A login that completed in the meantime already set the user
	if c.Snapshot().User != nil {
		return
	}

	c.Refresh(ctx)

	if !c.Snapshot().Status.Known() {
		c.logger.Warn("session status unresolved after bootstrap",
			"reason", "refresh failed while a token is persisted",
		)
	}
}

// Initialized reports whether Bootstrap has run.
func (c *Coordinator) Initialized() bool {
	return c.initialized.Load()
}

func (c *Coordinator) isCallbackPath(p string) bool {
	if p == "" {
		return false
	}
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	return strings.TrimSuffix(p, "/") == strings.TrimSuffix(c.callbackPath, "/")
}

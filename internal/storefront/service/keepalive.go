package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/internal/storefront/session"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
)

// Session is what the keepalive needs from the coordinator.
type Session interface {
	Snapshot() session.State
	Refresh(ctx context.Context)
}

// KeepaliveService refreshes a logged-in session shortly before its access
// token expires, so a long-running client never sends an expired token.
// Opaque tokens carry no expiry and are left alone.
type KeepaliveService struct {
	Session  Session
	Logger   *slog.Logger
	Interval time.Duration // how often the token is checked
	Window   time.Duration // refresh when the token expires within this

	now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewKeepaliveService creates a keepalive. A non-positive interval defaults to
// one minute and a non-positive window to five minutes.
func NewKeepaliveService(s Session, logger *slog.Logger, interval, window time.Duration) *KeepaliveService {
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = 5 * time.Minute
	}

	return &KeepaliveService{
		Session:  s,
		Logger:   logger,
		Interval: interval,
		Window:   window,
		now:      time.Now,
	}
}

// Start runs the background worker until Stop is called or ctx ends. Starting
// a running service is a no-op; a stopped one can be started again.
func (s *KeepaliveService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.doneCh = make(chan struct{})
	go s.run(ctx, s.doneCh)
	s.Logger.Info("keepalive service started", "interval", s.Interval, "window", s.Window)
}

// Stop shuts the worker down and waits for an in-flight refresh to finish.
func (s *KeepaliveService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.doneCh
	s.cancel = nil
	s.Logger.Info("keepalive service stopped")
}

func (s *KeepaliveService) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check refreshes the session if its token is about to expire. It reports
// whether a refresh was attempted.
func (s *KeepaliveService) Check(ctx context.Context) bool {
	snap := s.Session.Snapshot()
	if snap.Status != session.StatusLoggedIn || snap.AccessToken == "" {
		return false
	}

	info, err := jwtx.Inspect(snap.AccessToken)
	if err != nil || info.ExpiresAt.IsZero() {
		return false
	}

	left := info.ExpiresIn(s.now())
	if left > s.Window {
		return false
	}

	s.Logger.Info("access token expiring, refreshing session",
		"subject", info.Subject,
		"expires_in", left.Round(time.Second).String(),
	)
	s.Session.Refresh(ctx)
	return true
}

package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/storefront/apitest"
	"github.com/aussiebroadwan/storefront/internal/storefront/session"
	"github.com/aussiebroadwan/storefront/internal/storefront/store"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var carol = storefrontsdk.User{ID: "u-carol", Email: "carol@example.com", FullName: "Carol", Role: "customer"}

func testConfig(t *testing.T, srv *apitest.Server, driver string) Config {
	t.Helper()
	dir := t.TempDir()

	return Config{
		APIURL:              srv.URL,
		StoreDriver:         driver,
		StoreDir:            filepath.Join(dir, "store"),
		DatabaseFile:        filepath.Join(dir, "storefront.db"),
		MasterKeyPath:       filepath.Join(dir, "master.key"),
		InitialPath:         "/",
		APIRateLimit:        50,
		APITimeout:          5 * time.Second,
		KeepaliveInterval:   time.Minute,
		RefreshWindow:       5 * time.Minute,
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
		LogOutput:           io.Discard,
	}
}

// runApp runs the application until the test ends.
func runApp(t *testing.T, a *Application) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{StoreDriver: "memory", LogOutput: io.Discard})
	require.ErrorContains(t, err, "STOREFRONT_API_URL")
}

func TestApplicationDrivers(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"memory", "file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()

			srv := apitest.New(t)
			srv.AddUser(carol, "pw")

			a, err := New(testConfig(t, srv, driver))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Shutdown() })

			ctx := context.Background()
			require.NoError(t, a.store.Set(ctx, store.AccessTokenKey, srv.IssueToken(carol.ID)))

			runApp(t, a)

			require.Eventually(t, func() bool {
				return a.Session().Snapshot().Status == session.StatusLoggedIn
			}, 5*time.Second, 10*time.Millisecond)
			require.Equal(t, carol.ID, a.Session().Snapshot().UserID())
		})
	}
}

func TestApplicationPersistsAcrossRestarts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := apitest.New(t)
	srv.AddUser(carol, "pw")
	cfg := testConfig(t, srv, "file")

	first, err := New(cfg)
	require.NoError(t, err)
	first.Session().Bootstrap(ctx, "/")
	require.Equal(t, session.StatusLoggedOut, first.Session().Snapshot().Status)
	require.NoError(t, first.Session().Login(ctx, carol.Email, "pw"))
	require.NoError(t, first.Shutdown())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown() })

	second.Session().Bootstrap(ctx, "/")
	s := second.Session().Snapshot()
	require.Equal(t, session.StatusLoggedIn, s.Status)
	require.Equal(t, carol.ID, s.UserID())
}

func TestApplicationExternalTokenRemoval(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	srv.AddUser(carol, "pw")
	cfg := testConfig(t, srv, "file")

	a, err := New(cfg)
	require.NoError(t, err)

	token := srv.IssueToken(carol.ID)
	require.NoError(t, a.store.Set(context.Background(), store.AccessTokenKey, token))

	runApp(t, a)
	require.Eventually(t, func() bool {
		return a.Session().Snapshot().Status == session.StatusLoggedIn
	}, 5*time.Second, 10*time.Millisecond)

	// Another process signs the user out
	srv.RevokeToken(token)
	require.NoError(t, os.Remove(filepath.Join(cfg.StoreDir, store.AccessTokenKey+".sealed")))

	require.Eventually(t, func() bool {
		return a.Session().Snapshot().Status == session.StatusLoggedOut
	}, 5*time.Second, 10*time.Millisecond)
	require.Empty(t, a.client.BearerToken())
}

func TestApplicationMetrics(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	a, err := New(testConfig(t, srv, "memory"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	a.Session().Bootstrap(context.Background(), "/")

	n, err := testutil.GatherAndCount(a.registry, "storefront_session_status")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	a, err := New(testConfig(t, srv, "sqlite"))
	require.NoError(t, err)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestApplicationOpsEndpoints(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	cfg := testConfig(t, srv, "memory")
	cfg.MetricsAddr = "127.0.0.1:0"

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	require.NotNil(t, a.opsServer)

	h := a.opsServer.Handler

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	a.Session().Bootstrap(context.Background(), "/")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"logged_out"`)
}

func TestKeepaliveDisabled(t *testing.T) {
	t.Parallel()

	srv := apitest.New(t)
	cfg := testConfig(t, srv, "memory")
	cfg.KeepaliveInterval = 0

	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	require.Nil(t, a.keepalive)
}

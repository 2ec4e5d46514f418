package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
	"github.com/aussiebroadwan/storefront/internal/storefront/session"
	"github.com/aussiebroadwan/storefront/pkg/jwtx"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/aussiebroadwan/storefront/pkg/storefrontsdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeSession struct {
	state       session.State
	initialized bool
}

func (f fakeSession) Snapshot() session.State { return f.state }
func (f fakeSession) Initialized() bool       { return f.initialized }

func newTestRouter(t *testing.T, st Pinger, sv SessionView) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg, session.StatusLabels()...).RecordStatus(sv.Snapshot().Status.String())

	r := NewRouter("v-test", st, sv, reg, slogx.Discard())
	r.ApplyRoutes()
	return r.Handler()
}

func get(t *testing.T, h http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if v != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
	}
	return rec
}

func TestLivez(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, fakePinger{}, fakeSession{})

	var resp HealthResponse
	rec := get(t, h, "/livez", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "v-test", resp.Version)
	require.Nil(t, resp.Checks)
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		storeErr    error
		initialized bool
		wantCode    int
		wantStore   string
		wantSession string
	}{
		{"ready", nil, true, http.StatusOK, "ok", "ok"},
		{"bootstrapping", nil, false, http.StatusServiceUnavailable, "ok", "bootstrapping"},
		{"store down", errors.New("connection refused"), true, http.StatusServiceUnavailable, "error: connection refused", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestRouter(t, fakePinger{err: tt.storeErr}, fakeSession{initialized: tt.initialized})

			var resp HealthResponse
			rec := get(t, h, "/readyz", &resp)
			require.Equal(t, tt.wantCode, rec.Code)
			require.NotNil(t, resp.Checks)
			require.Equal(t, tt.wantStore, resp.Checks.Store)
			require.Equal(t, tt.wantSession, resp.Checks.Session)
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		h := newTestRouter(t, fakePinger{}, fakeSession{})

		var resp SessionResponse
		rec := get(t, h, "/session", &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Equal(t, "unknown", resp.Status)
		require.Nil(t, resp.Authenticated)
		require.False(t, resp.HasToken)
	})

	t.Run("logged in never leaks the token", func(t *testing.T) {
		t.Parallel()

		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(exp)},
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		state := session.State{
			Status:      session.StatusLoggedIn,
			AccessToken: token,
			User:        &storefrontsdk.User{ID: "u-1", Role: "admin"},
			Cart: &storefrontsdk.Cart{Items: []storefrontsdk.CartItem{
				{MenuID: "m", Quantity: 2, Price: 4.5},
			}},
		}
		h := newTestRouter(t, fakePinger{}, fakeSession{state: state, initialized: true})

		rec := get(t, h, "/session", nil)
		require.False(t, strings.Contains(rec.Body.String(), token))

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Authenticated)
		require.True(t, *resp.Authenticated)
		require.Equal(t, "u-1", resp.UserID)
		require.Equal(t, "admin", resp.Role)
		require.True(t, resp.HasToken)
		require.NotNil(t, resp.TokenExpiry)
		require.True(t, exp.Equal(*resp.TokenExpiry))
		require.Equal(t, 2, resp.CartItems)
		require.Equal(t, 9.0, resp.CartTotal)
	})
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, fakePinger{}, fakeSession{state: session.State{Status: session.StatusLoggedOut}})

	rec := get(t, h, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `storefront_session_status{status="logged_out"} 1`)
}

func TestUnknownMethod(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, fakePinger{}, fakeSession{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/livez", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "unknown", "logged_out", "logged_in")

	c.RecordRefresh(RefreshSuccess)
	c.RecordRefresh(RefreshSuccess)
	c.RecordRefresh(RefreshRetained)
	c.RecordCartSync(CartStale)

	require.Equal(t, 2.0, testutil.ToFloat64(c.refresh.WithLabelValues(RefreshSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.refresh.WithLabelValues(RefreshRetained)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.cartSync.WithLabelValues(CartStale)))

	c.RecordStatus("unknown")
	c.RecordStatus("logged_in")
	require.Equal(t, 0.0, testutil.ToFloat64(c.status.WithLabelValues("unknown")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.status.WithLabelValues("logged_in")))
	require.Equal(t, 0.0, testutil.ToFloat64(c.status.WithLabelValues("logged_out")))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "logged_in")
	c.RecordRefresh(RefreshLoggedOut)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(string(body), `storefront_session_refresh_total{outcome="logged_out"} 1`))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordRefresh(RefreshSuccess)
	r.RecordCartSync(CartFailure)
	r.RecordStatus("unknown")
}

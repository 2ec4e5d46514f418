package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/storefront/internal/storefront/metrics"
	"github.com/aussiebroadwan/storefront/internal/storefront/session"
	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is a dependency readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionView is the read side of the session coordinator.
type SessionView interface {
	Snapshot() session.State
	Initialized() bool
}

// Router serves the operator endpoints of a running session: health probes,
// Prometheus metrics and a redacted view of the session.
type Router struct {
	Mux *http.ServeMux

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    Pinger
	session  SessionView
	gatherer prometheus.Gatherer
}

func NewRouter(buildVersion string, st Pinger, sv SessionView, g prometheus.Gatherer, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		session:      sv,
		gatherer:     g,
	}
}

func (r *Router) ApplyRoutes() {
	r.Mux.HandleFunc("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.HandleFunc("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.session))
	r.Mux.HandleFunc("GET /session", SessionHandler(r.session))
	r.Mux.Handle("GET /metrics", metrics.Handler(r.gatherer))
}

// Handler returns the mux wrapped in the logging middleware.
func (r *Router) Handler() http.Handler {
	return slogx.HTTPMiddleware(r.logger)(r.Mux)
}

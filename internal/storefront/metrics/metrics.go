// Package metrics exposes Prometheus metrics for the session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshSuccess   = "success"
	RefreshRetained  = "retained"   // failed, stored token kept the session
	RefreshLoggedOut = "logged_out" // failed with no stored token
	RefreshDiscarded = "discarded"  // succeeded after a logout had started
)

// Cart sync outcomes.
const (
	CartSuccess = "success"
	CartFailure = "failure"
	CartStale   = "stale" // result arrived after the user changed
)

// Recorder is what the session coordinator reports to.
type Recorder interface {
	RecordRefresh(outcome string)
	RecordCartSync(outcome string)
	RecordStatus(status string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRefresh(string)  {}
func (Nop) RecordCartSync(string) {}
func (Nop) RecordStatus(string)   {}

// Collector records into Prometheus.
type Collector struct {
	refresh  *prometheus.CounterVec
	cartSync *prometheus.CounterVec
	status   *prometheus.GaugeVec
	statuses []string
}

// NewCollector creates a Collector and registers its metrics with reg.
// statuses are the possible status labels; exactly one of them is set to 1.
func NewCollector(reg prometheus.Registerer, statuses ...string) *Collector {
	c := &Collector{
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_session_refresh_total",
			Help: "Session refresh attempts by outcome",
		}, []string{"outcome"}),
		cartSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_sync_total",
			Help: "Cart synchronisations by outcome",
		}, []string{"outcome"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_session_status",
			Help: "Current authentication status (1 for the active status)",
		}, []string{"status"}),
		statuses: statuses,
	}

	reg.MustRegister(c.refresh, c.cartSync, c.status)

	return c
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refresh.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordCartSync(outcome string) {
	c.cartSync.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordStatus(status string) {
	for _, s := range c.statuses {
		c.status.WithLabelValues(s).Set(0)
	}
	c.status.WithLabelValues(status).Set(1)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

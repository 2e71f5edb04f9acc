package offlinecache

import "github.com/prometheus/client_golang/prometheus"

const (
	routePassThrough = "pass_through"
	routeNetworkOnly = "network_only"
	routeCacheHit    = "cache_hit"
	routeCacheMiss   = "cache_miss"
)

// Metrics counts worker decisions. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// FetchTotal counts intercepted requests by route.
	FetchTotal *prometheus.CounterVec

	// RevalidationsTotal counts background refreshes by outcome
	// ("updated", "skipped", "failed").
	RevalidationsTotal *prometheus.CounterVec

	// SyncTotal counts sync handshakes by outcome.
	SyncTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "worker",
			Name:      "fetch_total",
			Help:      "Intercepted requests by routing decision",
		}, []string{"route"}),
		RevalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "worker",
			Name:      "revalidations_total",
			Help:      "Background cache refreshes by outcome",
		}, []string{"outcome"}),
		SyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offline_gateway",
			Subsystem: "worker",
			Name:      "sync_total",
			Help:      "Background sync handshakes by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.FetchTotal, m.RevalidationsTotal, m.SyncTotal)
	}
	return m
}

func (m *Metrics) fetch(route string) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) revalidation(outcome string) {
	if m == nil {
		return
	}
	m.RevalidationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) sync(outcome string) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(outcome).Inc()
}

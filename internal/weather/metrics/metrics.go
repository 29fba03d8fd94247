package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks upstream calls made by the weather service.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	SharedLookups    prometheus.Counter
}

// New registers the weather metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_upstream_requests_total",
			Help: "Calls to open-meteo, by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_upstream_duration_seconds",
			Help:    "Latency of open-meteo calls, by endpoint",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		SharedLookups: factory.NewCounter(prometheus.CounterOpts{
			Name: "weather_geocode_shared_total",
			Help: "Geocode lookups answered by an in-flight call for the same city",
		}),
	}
}

// ObserveUpstream records one upstream call started at start.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncrementShared records a coalesced geocode lookup.
func (m *Metrics) IncrementShared() {
	if m == nil {
		return
	}
	m.SharedLookups.Inc()
}

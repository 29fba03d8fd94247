package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks a relying party's logins and downstream calls.
type Metrics struct {
	Logins          *prometheus.CounterVec
	ServiceRequests *prometheus.CounterVec
	ServiceDuration prometheus.Histogram
}

// New registers the relying-party metrics against reg, labelled with clientID.
func New(reg prometheus.Registerer, clientID string) *Metrics {
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"client_id": clientID}, reg))
	return &Metrics{
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rp_logins_total",
			Help: "Completed authorization callbacks, by outcome",
		}, []string{"outcome"}),
		ServiceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rp_service_requests_total",
			Help: "Calls to the weather service, by response status",
		}, []string{"status"}),
		ServiceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rp_service_request_duration_seconds",
			Help:    "Latency of weather service calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementLogins records a callback outcome: "ok" or an error code.
func (m *Metrics) IncrementLogins(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// ObserveServiceRequest records one weather service call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveServiceRequest(status string, start time.Time) {
	if m == nil {
		return
	}
	m.ServiceRequests.WithLabelValues(status).Inc()
	m.ServiceDuration.Observe(time.Since(start).Seconds())
}

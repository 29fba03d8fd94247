package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the authorization-code protocol at the identity provider.
type Metrics struct {
	CodesIssued          prometheus.Counter
	LoginFailures        prometheus.Counter
	TokensIssued         *prometheus.CounterVec
	TokenFailures        *prometheus.CounterVec
	MissingClientSecrets *prometheus.CounterVec
	SweptRecords         *prometheus.CounterVec
}

// New registers the IdP metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CodesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "idp_authorization_codes_issued_total",
			Help: "Total number of authorization codes issued",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "idp_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_tokens_issued_total",
			Help: "Total number of access tokens issued, by client",
		}, []string{"client_id"}),
		TokenFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_token_failures_total",
			Help: "Total number of rejected token requests, by error code",
		}, []string{"error"}),
		MissingClientSecrets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_token_missing_client_secret_total",
			Help: "Token requests that presented no client secret, by client",
		}, []string{"client_id"}),
		SweptRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_swept_records_total",
			Help: "Expired records removed by the sweep loop, by table",
		}, []string{"table"}),
	}
}

// IncrementCodesIssued records a minted authorization code.
func (m *Metrics) IncrementCodesIssued() {
	if m == nil {
		return
	}
	m.CodesIssued.Inc()
}

// IncrementLoginFailures records a rejected username/password pair.
func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

// IncrementTokensIssued records a successful exchange for clientID.
func (m *Metrics) IncrementTokensIssued(clientID string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(clientID).Inc()
}

// IncrementTokenFailures records a rejected exchange by wire error code.
func (m *Metrics) IncrementTokenFailures(code string) {
	if m == nil {
		return
	}
	m.TokenFailures.WithLabelValues(code).Inc()
}

// IncrementMissingClientSecret records an exchange accepted without a secret.
func (m *Metrics) IncrementMissingClientSecret(clientID string) {
	if m == nil {
		return
	}
	m.MissingClientSecrets.WithLabelValues(clientID).Inc()
}

// AddSwept records how many expired records left table.
func (m *Metrics) AddSwept(table string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SweptRecords.WithLabelValues(table).Add(float64(n))
}

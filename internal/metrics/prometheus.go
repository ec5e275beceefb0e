package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeSkipped is a refresh that was not needed because a newer pair was already stored
	OutcomeSkipped = "skipped"
)

// Metrics tracks the token refresh pipeline.
type Metrics struct {
	RefreshAttempts  prometheus.Counter
	RefreshOutcomes  *prometheus.CounterVec
	RefreshWaiters   prometheus.Counter
	RefreshDuration  prometheus.Histogram
	RequestRetries   prometheus.Counter
	SessionsExpired  prometheus.Counter
	ScheduledRefresh *prometheus.CounterVec
}

// New registers all metrics on reg. Use prometheus.DefaultRegisterer in the server and
// a fresh prometheus.NewRegistry() in tests so that metrics can be registered more than once.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_token_refresh_attempts_total",
			Help: "Total number of token refresh exchanges sent to the API",
		}),
		RefreshOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_token_refresh_outcomes_total",
			Help: "Token refresh episodes by outcome",
		}, []string{"outcome"}),
		RefreshWaiters: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_token_refresh_shared_waiters_total",
			Help: "Callers that waited on a refresh started by another caller",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_token_refresh_duration_seconds",
			Help:    "Duration of token refresh exchanges",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		RequestRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_api_request_retries_total",
			Help: "API requests replayed after a token refresh",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_sessions_expired_total",
			Help: "Sessions whose credentials were dropped after a failed refresh",
		}),
		ScheduledRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_scheduled_token_refresh_total",
			Help: "Credentials refreshed by the background refresher by outcome",
		}, []string{"outcome"}),
	}
}

// The helpers below accept a nil receiver so that components can run without metrics.

func (m *Metrics) IncrementRefreshAttempt() {
	if m == nil {
		return
	}
	m.RefreshAttempts.Inc()
}

func (m *Metrics) IncrementRefreshOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RefreshOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRefreshWaiter() {
	if m == nil {
		return
	}
	m.RefreshWaiters.Inc()
}

func (m *Metrics) ObserveRefreshDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RefreshDuration.Observe(seconds)
}

func (m *Metrics) IncrementRequestRetry() {
	if m == nil {
		return
	}
	m.RequestRetries.Inc()
}

func (m *Metrics) IncrementSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

func (m *Metrics) IncrementScheduledRefresh(outcome string) {
	if m == nil {
		return
	}
	m.ScheduledRefresh.WithLabelValues(outcome).Inc()
}

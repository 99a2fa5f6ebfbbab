package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claim workflow.
type Metrics struct {
	ClaimsCreated        prometheus.Counter
	NotificationFailures prometheus.Counter
	VerificationOutcomes *prometheus.CounterVec
	ReviewDecisions      *prometheus.CounterVec
	WebsiteFetchDuration *prometheus.HistogramVec
	VerifyClaimDuration  prometheus.Histogram
	OwnershipTransferred prometheus.Counter
}

// New creates a Metrics instance registered with the default registry.
// Call it once per process.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the claim metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClaimsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "photobook_claims_created_total",
			Help: "Total number of creator claims requested",
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "photobook_claim_notification_failures_total",
			Help: "Claims rolled back because the verification notification could not be sent",
		}),
		VerificationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "photobook_claim_verification_outcomes_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		ReviewDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "photobook_claim_review_decisions_total",
			Help: "Administrator review decisions",
		}, []string{"decision"}),
		WebsiteFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photobook_claim_website_fetch_duration_seconds",
			Help:    "Duration of claimant website fetches by result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
		VerifyClaimDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "photobook_claim_verify_duration_seconds",
			Help:    "Duration of VerifyClaim operations including the website fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		OwnershipTransferred: factory.NewCounter(prometheus.CounterOpts{
			Name: "photobook_creator_ownership_transfers_total",
			Help: "Creators whose ownership moved to a verified claimant",
		}),
	}
}

func (m *Metrics) IncrementClaimsCreated() {
	m.ClaimsCreated.Inc()
}

func (m *Metrics) IncrementNotificationFailures() {
	m.NotificationFailures.Inc()
}

func (m *Metrics) IncrementOwnershipTransferred() {
	m.OwnershipTransferred.Inc()
}

func (m *Metrics) RecordOutcome(outcome string) {
	m.VerificationOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordReview(decision string) {
	m.ReviewDecisions.WithLabelValues(decision).Inc()
}

// ObserveWebsiteFetch records a website fetch. It satisfies website.FetchObserver.
func (m *Metrics) ObserveWebsiteFetch(result string, d time.Duration) {
	m.WebsiteFetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveVerifyClaim records the duration of a VerifyClaim operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerifyClaim(start time.Time) {
	m.VerifyClaimDuration.Observe(time.Since(start).Seconds())
}

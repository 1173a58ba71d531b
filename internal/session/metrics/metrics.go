package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Committed outcomes by status
	Outcomes *prometheus.CounterVec

	// Submissions refused before a session was created, by error code
	Rejected *prometheus.CounterVec

	// Sessions replaced by a newer submission or a reset
	Superseded prometheus.Counter

	// Sessions that failed terminally, by error code
	Failed *prometheus.CounterVec

	// Submission-to-commit latency
	Duration prometheus.Histogram
}

// New registers the pipeline metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certguard_verification_outcomes_total",
			Help: "Committed verification outcomes by status",
		}, []string{"status"}), // status: VERIFIED, FORGED, NOT_FOUND

		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certguard_submissions_rejected_total",
			Help: "Submissions rejected before a session was created, by error code",
		}, []string{"code"}),

		Superseded: factory.NewCounter(prometheus.CounterOpts{
			Name: "certguard_sessions_superseded_total",
			Help: "Sessions discarded because a newer submission or reset replaced them",
		}),

		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certguard_sessions_failed_total",
			Help: "Sessions that failed terminally, by error code",
		}, []string{"code"}),

		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certguard_session_duration_seconds",
			Help:    "Duration from submission to committed outcome",
			Buckets: []float64{0.01, 0.05, 0.25, 0.5, 1, 2, 3, 4, 5, 7.5, 10, 30},
		}),
	}
}

// RegisterRecordsGauge exposes the size of the credential store.
func RegisterRecordsGauge(reg prometheus.Registerer, count func() int) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "certguard_credential_records",
		Help: "Issued credentials currently held in the record store",
	}, func() float64 { return float64(count()) })
}

// IncrementOutcome records a committed outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncrementRejected records a refused submission.
func (m *Metrics) IncrementRejected(code string) {
	if m != nil {
		m.Rejected.WithLabelValues(code).Inc()
	}
}

// IncrementSuperseded records a discarded session.
func (m *Metrics) IncrementSuperseded() {
	if m != nil {
		m.Superseded.Inc()
	}
}

// IncrementFailed records a terminal failure.
func (m *Metrics) IncrementFailed(code string) {
	if m != nil {
		m.Failed.WithLabelValues(code).Inc()
	}
}

// ObserveDuration records the submission-to-commit latency.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Observe(d.Seconds())
	}
}

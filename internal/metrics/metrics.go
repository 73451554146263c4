package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the attendance protocol
type Metrics struct {
	SubmissionsAccepted prometheus.Counter
	SubmissionsRejected *prometheus.CounterVec
	ClaimsOpened        prometheus.Counter
	TokensRotated       prometheus.Counter
	SessionsSwept       prometheus.Counter
}

// New registers and returns the service metrics. The rejected counter is
// labeled by internal reason; the coarse user-facing message hides the
// tripped check, the metric does not have to.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_submissions_accepted_total",
			Help: "Attendance submissions accepted and recorded.",
		}),
		SubmissionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_submissions_rejected_total",
			Help: "Attendance submissions rejected, by reason.",
		}, []string{"reason"}),
		ClaimsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_claims_opened_total",
			Help: "Claim sessions opened or extended.",
		}),
		TokensRotated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_tokens_rotated_total",
			Help: "Event tokens issued.",
		}),
		SessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_claim_sessions_swept_total",
			Help: "Expired claim sessions deleted by the background sweep.",
		}),
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and their terminal outcomes.
type CheckoutMetrics struct {
	attempts     prometheus.Counter
	outcomes     *prometheus.CounterVec
	verification *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts that reached the payment widget.",
	})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Terminal checkout outcomes.",
	}, []string{"outcome"})
	verification := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_verification_duration_seconds",
		Help:    "Duration of post-payment verification calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(attempts, outcomes, verification)
	return &CheckoutMetrics{
		attempts:     attempts,
		outcomes:     outcomes,
		verification: verification,
	}
}

// IncAttempt counts a checkout attempt that opened the payment widget.
func (c *CheckoutMetrics) IncAttempt() {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.Inc()
}

// IncOutcome counts a terminal outcome for a checkout attempt.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveVerification records the duration of a verification call.
func (c *CheckoutMetrics) ObserveVerification(result string, duration time.Duration) {
	if c == nil || c.verification == nil {
		return
	}
	c.verification.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

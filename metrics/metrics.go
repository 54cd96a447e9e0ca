// Package metrics defines the recorder surface for unlock flow
// instrumentation, with a silent default and a Prometheus implementation.
package metrics

import "time"

// Counter and latency names recorded by the flow package.
const (
	CounterPaymentAttempt = "payment_attempt"
	CounterPaymentSuccess = "payment_success"
	CounterPaymentFailure = "payment_failure"
	CounterTermsFetch     = "terms_fetch"
	CounterTermsError     = "terms_error"

	LatencySubmit = "submit"
	LatencyTerms  = "terms"
)

// Recorder receives flow events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// NoopRecorder discards all measurements. It is the default recorder.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}

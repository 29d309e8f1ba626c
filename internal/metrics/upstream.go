package metrics

import "time"

// Upstream call outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
)

// AuthAPICallCompleted records one round trip to the upstream auth API.
func AuthAPICallCompleted(operation, outcome string, duration time.Duration) {
	AuthAPICalls.WithLabelValues(operation, outcome).Inc()
	AuthAPIDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// FormPressed records a form control press.
func FormPressed(mode, result string) {
	FormSubmissions.WithLabelValues(mode, result).Inc()
}

// FieldInvalid records a single field validation failure.
func FieldInvalid(mode, field string) {
	ValidationFailures.WithLabelValues(mode, field).Inc()
}

package domain

import "time"

// Result is the outcome of a single send attempt. Produced once per attempt
// and never mutated; consumed by the delivery tracker and the circuit breaker.
type Result struct {
	Success      bool          `json:"success"`
	StatusCode   int           `json:"status_code,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Body         string        `json:"body,omitempty"`
	Error        string        `json:"error,omitempty"`

	// Set when the attempt was denied by the webhook's circuit breaker.
	CircuitState  string    `json:"circuit_state,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at,omitempty"`
}

// Delivered reports whether the attempt reached the endpoint successfully
// (2xx response).
func (r *Result) Delivered() bool {
	return r != nil && r.Success && r.StatusCode < 300
}

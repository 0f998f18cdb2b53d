// Package breaker isolates failing webhook endpoints with a per-endpoint
// circuit breaker state machine.
package breaker

import (
	"sync"
	"time"
)

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config defines failure-isolation thresholds.
type Config struct {
	// FailureThreshold opens the circuit once this many failures are
	// recorded within MonitorWindow.
	FailureThreshold int `yaml:"failure_threshold"`
	// ResetTimeout is how long the circuit stays open before admitting a
	// single trial call.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	// MonitorWindow is the rolling window for counting failures. Failures
	// older than the window are pruned before the threshold is evaluated.
	MonitorWindow time.Duration `yaml:"monitor_window"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	FailureThreshold: 5,
	ResetTimeout:     60 * time.Second,
	MonitorWindow:    10 * time.Minute,
}

// Snapshot is a read-only view of breaker state for monitoring.
type Snapshot struct {
	State         State     `json:"state"`
	FailureCount  int       `json:"failure_count"`
	SuccessCount  int       `json:"success_count"`
	LastFailure   time.Time `json:"last_failure,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at,omitempty"`
}

// Breaker is a failure-isolation state machine for one webhook endpoint.
// Instances are never shared across webhook ids.
type Breaker struct {
	mu  sync.Mutex
	cfg Config

	state        State
	failures     []time.Time
	successCount int
	lastFailure  time.Time
	nextAttempt  time.Time
	trialUsed    bool

	now func() time.Time
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig.ResetTimeout
	}
	if cfg.MonitorWindow <= 0 {
		cfg.MonitorWindow = DefaultConfig.MonitorWindow
	}
	return &Breaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Allow reports whether a call may proceed right now. While open it returns
// false until the reset timeout elapses, at which point the breaker moves to
// half-open and admits exactly one trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Before(b.nextAttempt) {
			return false
		}
		b.state = StateHalfOpen
		b.trialUsed = true
		return true
	case StateHalfOpen:
		if b.trialUsed {
			return false
		}
		b.trialUsed = true
		return true
	}
	return false
}

// RecordSuccess registers a successful call. A half-open trial success closes
// the circuit and resets the failure counters.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.failures = nil
		b.trialUsed = false
	}
}

// RecordFailure registers a failed call. In the closed state the circuit
// opens once the threshold is reached within the monitoring window; a
// half-open trial failure reopens with a fresh reset timeout.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.lastFailure = now

	switch b.state {
	case StateHalfOpen:
		b.open(now)
	case StateClosed:
		b.failures = append(b.failures, now)
		b.prune(now)
		if len(b.failures) >= b.cfg.FailureThreshold {
			b.open(now)
		}
	case StateOpen:
		// Already isolated; nothing to count.
	}
}

// Reset forces the breaker back to closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = nil
	b.successCount = 0
	b.trialUsed = false
	b.lastFailure = time.Time{}
	b.nextAttempt = time.Time{}
}

// ForceOpen opens the circuit immediately, for operational overrides.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open(b.now())
}

// Snapshot returns the current state for monitoring.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.now())
	return Snapshot{
		State:         b.state,
		FailureCount:  len(b.failures),
		SuccessCount:  b.successCount,
		LastFailure:   b.lastFailure,
		NextAttemptAt: b.nextAttempt,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) open(now time.Time) {
	b.state = StateOpen
	b.nextAttempt = now.Add(b.cfg.ResetTimeout)
	b.trialUsed = false
}

// prune drops failures older than the monitoring window so the breaker
// recovers passively from old, unrelated failures.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.MonitorWindow)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}

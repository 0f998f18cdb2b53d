// Package backoff computes retry delays for failed deliveries.
// It carries no state between calls: every delay is a pure function of the
// attempt number and the jitter draw.
package backoff

import (
	"math/rand"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
)

// Config defines retry delay behavior.
type Config struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	// Jitter is the fraction of the computed delay added as random slack,
	// in [0, 1]. Jitter is additive, so the delay never drops below the
	// exponential value.
	Jitter float64 `yaml:"jitter"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	BaseDelay: 1 * time.Second,
	MaxDelay:  60 * time.Second,
	Jitter:    0.1,
}

// Delay returns min(base * 2^attempt, max) plus bounded non-negative jitter.
func (c Config) Delay(attempt int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = DefaultConfig.BaseDelay
	}
	maximum := c.MaxDelay
	if maximum <= 0 {
		maximum = DefaultConfig.MaxDelay
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maximum || delay <= 0 {
			delay = maximum
			break
		}
	}
	if delay > maximum {
		delay = maximum
	}

	if c.Jitter > 0 {
		delay += time.Duration(rand.Float64() * c.Jitter * float64(delay))
	}
	return delay
}

// ShouldRetry reports whether a failed delivery has retry budget left.
// A delivery that already completed is never retried.
func ShouldRetry(d *domain.Delivery) bool {
	if d == nil || d.Status == domain.DeliveryCompleted {
		return false
	}
	return d.Attempts < d.MaxAttempts
}

// Package sender performs single webhook delivery attempts: config
// validation, circuit breaker consultation, payload formatting and the
// transport call.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/delivery/breaker"
	"github.com/vietddude/relay/internal/delivery/format"
	"github.com/vietddude/relay/internal/delivery/metrics"
	"github.com/vietddude/relay/internal/delivery/tracker"
	"github.com/vietddude/relay/internal/infra/transport"
)

// defaultHeaders are merged under per-webhook headers; webhook headers win
// on conflict.
var defaultHeaders = map[string]string{
	"Content-Type": "application/json",
}

// Sender validates webhook configuration and performs one send attempt per
// call, updating the endpoint's circuit breaker and forwarding every outcome
// to the delivery tracker.
type Sender struct {
	transport transport.Transport
	breakers  *breaker.Registry
	tracker   *tracker.Tracker

	mu      sync.RWMutex
	configs map[string]domain.WebhookConfig
}

// New creates a sender.
func New(t transport.Transport, breakers *breaker.Registry, tr *tracker.Tracker) *Sender {
	return &Sender{
		transport: t,
		breakers:  breakers,
		tracker:   tr,
		configs:   make(map[string]domain.WebhookConfig),
	}
}

// RegisterConfig stores a webhook config for lookup by id. Send validates on
// every attempt, so a config that later becomes invalid is still rejected.
func (s *Sender) RegisterConfig(cfg domain.WebhookConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg
}

// UnregisterConfig removes a stored webhook config.
func (s *Sender) UnregisterConfig(webhookID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, webhookID)
}

// Breakers exposes the per-webhook breaker registry for monitoring.
func (s *Sender) Breakers() *breaker.Registry {
	return s.breakers
}

// Send performs one delivery attempt. cfg may be nil, in which case the
// config registered for the delivery's webhook id is used. The returned
// result is never nil.
//
// Invalid configuration fails fast without a network call and without
// consuming the attempt; circuit-denied and transport outcomes are both
// forwarded to the tracker exactly once.
func (s *Sender) Send(ctx context.Context, d *domain.Delivery, cfg *domain.WebhookConfig) *domain.Result {
	resolved, err := s.resolveConfig(d, cfg)
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues(d.WebhookID, metrics.OutcomeInvalidConfig).Inc()
		return &domain.Result{Success: false, Error: err.Error()}
	}

	b := s.breakers.Get(resolved.ID)
	if !b.Allow() {
		snap := b.Snapshot()
		res := &domain.Result{
			Success:       false,
			Error:         fmt.Sprintf("circuit breaker %s for webhook %s", snap.State, resolved.ID),
			CircuitState:  string(snap.State),
			NextAttemptAt: snap.NextAttemptAt,
		}
		metrics.DeliveryAttempts.WithLabelValues(resolved.ID, metrics.OutcomeCircuitDenied).Inc()
		metrics.CircuitOpen.WithLabelValues(resolved.ID).Set(1)
		s.tracker.Track(ctx, d, res)
		return res
	}
	metrics.CircuitOpen.WithLabelValues(resolved.ID).Set(0)

	fm, err := format.For(resolved.Format)
	if err != nil {
		// Validate already gates the format; a miss here means the
		// registered config changed shape under us.
		res := &domain.Result{Success: false, Error: err.Error()}
		metrics.DeliveryAttempts.WithLabelValues(resolved.ID, metrics.OutcomeInvalidConfig).Inc()
		return res
	}

	// Payload is always rebuilt from the canonical event; the delivery's
	// stored payload exists only for bookkeeping.
	payload := fm.Payload(d.Event)
	d.Payload = payload

	headers := mergeHeaders(defaultHeaders, resolved.Headers)

	out, terr := s.transport.Post(ctx, resolved.URL, payload, headers, resolved.Timeout)
	res := resultFrom(out, terr)

	if res.Success {
		b.RecordSuccess()
		metrics.DeliveryAttempts.WithLabelValues(resolved.ID, metrics.OutcomeSuccess).Inc()
	} else {
		b.RecordFailure()
		metrics.DeliveryAttempts.WithLabelValues(resolved.ID, metrics.OutcomeFailure).Inc()
		slog.Debug("Webhook attempt failed",
			"webhook_id", resolved.ID, "status", res.StatusCode, "error", res.Error)
	}
	metrics.DeliveryLatency.WithLabelValues(resolved.ID).Observe(res.ResponseTime.Seconds())

	s.tracker.Track(ctx, d, res)
	return res
}

func (s *Sender) resolveConfig(d *domain.Delivery, cfg *domain.WebhookConfig) (*domain.WebhookConfig, error) {
	if d == nil || d.Event == nil {
		return nil, fmt.Errorf("delivery has no event")
	}
	if cfg == nil {
		s.mu.RLock()
		stored, ok := s.configs[d.WebhookID]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("no config registered for webhook %s", d.WebhookID)
		}
		cfg = &stored
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	return cfg, nil
}

func mergeHeaders(defaults, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// resultFrom normalizes the transport outcome. Network-level errors are
// treated identically to unsuccessful responses.
func resultFrom(out *transport.Result, err error) *domain.Result {
	res := &domain.Result{}
	if out != nil {
		res.Success = out.Success
		res.StatusCode = out.StatusCode
		res.ResponseTime = out.ResponseTime
		res.Body = out.Body
	}
	if err != nil {
		res.Success = false
		res.Error = err.Error()
	} else if !res.Success {
		res.Error = fmt.Sprintf("webhook returned status %d", res.StatusCode)
	}
	return res
}

// Package processor orchestrates the relay pipeline: it owns subscriptions,
// matches incoming events against their filters and enqueues one delivery
// per matching webhook.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/delivery/matcher"
	"github.com/vietddude/relay/internal/delivery/metrics"
	"github.com/vietddude/relay/internal/delivery/queue"
	"github.com/vietddude/relay/internal/delivery/sender"
	"github.com/vietddude/relay/internal/delivery/source"
)

// SignalKind labels a re-emitted source lifecycle signal.
type SignalKind string

const (
	SignalStarted SignalKind = "started"
	SignalStopped SignalKind = "stopped"
	SignalError   SignalKind = "error"
)

// Signal is a lifecycle notification republished for external observers.
type Signal struct {
	Kind SignalKind
	Err  error
	At   time.Time
}

// Stats aggregates processor state for the statistics surface.
type Stats struct {
	Running       bool        `json:"running"`
	Subscriptions int         `json:"subscriptions"`
	Queue         queue.Stats `json:"queue"`
}

// Processor receives raw events from the source, evaluates subscription
// filters, and enqueues deliveries. It owns the subscription map; the
// add/remove API is the only mutator.
type Processor struct {
	src   source.Source
	queue *queue.Queue
	snd   *sender.Sender

	mu   sync.RWMutex
	subs map[string]*domain.Subscription

	running atomic.Bool
	signals chan Signal
}

// New creates a processor wired to a source, queue and sender.
func New(src source.Source, q *queue.Queue, snd *sender.Sender) *Processor {
	p := &Processor{
		src:     src,
		queue:   q,
		snd:     snd,
		subs:    make(map[string]*domain.Subscription),
		signals: make(chan Signal, 16),
	}
	src.SetHandler(p)
	return p
}

// Start begins processing. A second call while running is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	p.queue.StartProcessing(ctx)
	if err := p.src.Start(ctx); err != nil {
		p.running.Store(false)
		_ = p.queue.StopProcessing(ctx)
		return fmt.Errorf("failed to start event source: %w", err)
	}

	slog.Info("Event processor started")
	return nil
}

// Stop halts the source and drains the queue. A call while stopped is a
// no-op.
func (p *Processor) Stop(ctx context.Context) error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}

	if err := p.src.Stop(); err != nil {
		slog.Error("Failed to stop event source", "error", err)
	}
	if err := p.queue.StopProcessing(ctx); err != nil {
		return fmt.Errorf("failed to drain delivery queue: %w", err)
	}

	slog.Info("Event processor stopped")
	return nil
}

// AddSubscription validates and registers a subscription.
func (p *Processor) AddSubscription(sub *domain.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("rejecting subscription: %w", err)
	}

	p.mu.Lock()
	p.subs[sub.ID] = sub
	p.mu.Unlock()

	for _, wh := range sub.Webhooks {
		p.snd.RegisterConfig(wh)
	}

	if err := p.src.AddSubscription(sub); err != nil {
		return fmt.Errorf("failed to register subscription with source: %w", err)
	}

	slog.Info("Subscription added",
		"subscription_id", sub.ID,
		"contract", sub.ContractAddress,
		"webhooks", len(sub.Webhooks))
	return nil
}

// RemoveSubscription drops a subscription. Removing an unknown id logs a
// warning and is otherwise a no-op.
func (p *Processor) RemoveSubscription(id string) error {
	p.mu.Lock()
	sub, ok := p.subs[id]
	if ok {
		delete(p.subs, id)
	}
	p.mu.Unlock()

	if !ok {
		slog.Warn("Remove requested for unknown subscription", "subscription_id", id)
		return nil
	}

	for _, wh := range sub.Webhooks {
		p.snd.UnregisterConfig(wh.ID)
	}
	if err := p.src.RemoveSubscription(id); err != nil {
		slog.Warn("Failed to remove subscription from source",
			"subscription_id", id, "error", err)
	}

	slog.Info("Subscription removed", "subscription_id", id)
	return nil
}

// Subscriptions lists the registered subscriptions.
func (p *Processor) Subscriptions() []*domain.Subscription {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*domain.Subscription, 0, len(p.subs))
	for _, sub := range p.subs {
		out = append(out, sub)
	}
	return out
}

// Stats returns the aggregate statistics surface.
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	count := len(p.subs)
	p.mu.RUnlock()

	return Stats{
		Running:       p.running.Load(),
		Subscriptions: count,
		Queue:         p.queue.Stats(),
	}
}

// Signals exposes re-emitted source lifecycle notifications.
func (p *Processor) Signals() <-chan Signal {
	return p.signals
}

// OnEvent implements source.Handler. Every per-event error is logged and
// contained; nothing propagates back to the source. Enqueue is
// fire-and-forget so the source is never blocked.
func (p *Processor) OnEvent(subscriptionID string, e *domain.Event) {
	metrics.EventsReceived.WithLabelValues(subscriptionID).Inc()

	p.mu.RLock()
	sub, ok := p.subs[subscriptionID]
	p.mu.RUnlock()
	if !ok {
		slog.Warn("Event for unknown subscription", "subscription_id", subscriptionID)
		return
	}

	if !matcher.Matches(e, sub.Filters) {
		return
	}
	metrics.EventsMatched.WithLabelValues(subscriptionID).Inc()

	now := time.Now().UTC()
	for _, wh := range sub.Webhooks {
		d := &domain.Delivery{
			ID:             uuid.New().String(),
			SubscriptionID: sub.ID,
			WebhookID:      wh.ID,
			Event:          e,
			MaxAttempts:    wh.RetryAttempts,
			Status:         domain.DeliveryPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		// Deliveries are enqueued independently; one webhook's problem
		// never blocks its siblings.
		p.queue.Enqueue(d)
	}
}

// OnStarted implements source.Handler.
func (p *Processor) OnStarted() {
	p.publish(Signal{Kind: SignalStarted, At: time.Now().UTC()})
}

// OnStopped implements source.Handler.
func (p *Processor) OnStopped() {
	p.publish(Signal{Kind: SignalStopped, At: time.Now().UTC()})
}

// OnError implements source.Handler.
func (p *Processor) OnError(err error) {
	slog.Error("Event source error", "error", err)
	p.publish(Signal{Kind: SignalError, Err: err, At: time.Now().UTC()})
}

// publish never blocks; a slow observer loses signals rather than stalling
// the pipeline.
func (p *Processor) publish(sig Signal) {
	select {
	case p.signals <- sig:
	default:
	}
}

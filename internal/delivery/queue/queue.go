// Package queue bounds concurrent webhook deliveries and schedules retries.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
	"github.com/vietddude/relay/internal/delivery/backoff"
	"github.com/vietddude/relay/internal/delivery/metrics"
	"github.com/vietddude/relay/internal/delivery/sender"
)

// Config holds queue settings.
type Config struct {
	// MaxConcurrent caps simultaneous in-flight deliveries. This is the
	// sole admission-control point for outbound sends.
	MaxConcurrent int            `yaml:"max_concurrent"`
	Backoff       backoff.Config `yaml:"backoff"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxConcurrent: 10,
	Backoff:       backoff.DefaultConfig,
}

// DeadLetterSink receives deliveries that exhausted their retry budget.
type DeadLetterSink interface {
	Push(ctx context.Context, d *domain.Delivery, reason string) error
}

// Stats is the live statistics surface polled by operators and tests.
type Stats struct {
	Pending       int    `json:"pending"`
	Processing    int    `json:"processing"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	MaxConcurrent int    `json:"max_concurrent"`
}

// Queue is a bounded-concurrency delivery queue. Enqueue is fire-and-forget;
// a background loop dispatches pending deliveries to the sender, re-queuing
// failed attempts after the computed backoff delay until the retry budget is
// exhausted.
type Queue struct {
	cfg    Config
	sender *sender.Sender
	dead   DeadLetterSink

	mu      sync.Mutex
	pending []*domain.Delivery

	processing atomic.Int64
	completed  atomic.Uint64
	failed     atomic.Uint64

	running atomic.Bool
	stop    chan struct{}
	wake    chan struct{}
	wg      sync.WaitGroup
	sem     chan struct{}
}

// New creates a queue.
func New(cfg Config, s *sender.Sender, dead DeadLetterSink) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig.MaxConcurrent
	}
	return &Queue{
		cfg:    cfg,
		sender: s,
		dead:   dead,
		wake:   make(chan struct{}, 1),
	}
}

// Enqueue appends a delivery and returns immediately. Deliveries enqueued
// while stopped are dispatched when processing starts.
func (q *Queue) Enqueue(d *domain.Delivery) {
	d.Status = domain.DeliveryPending
	d.UpdatedAt = time.Now().UTC()

	q.mu.Lock()
	q.pending = append(q.pending, d)
	metrics.QueuePending.Set(float64(len(q.pending)))
	q.mu.Unlock()

	q.signal()
}

// StartProcessing launches the background dispatch loop. A second call while
// running is a no-op.
func (q *Queue) StartProcessing(ctx context.Context) {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	q.stop = make(chan struct{})
	q.sem = make(chan struct{}, q.cfg.MaxConcurrent)

	q.wg.Add(1)
	go q.run(ctx)
}

// StopProcessing halts dispatch and waits for in-flight deliveries to finish
// or ctx to expire. Pending deliveries stay queued and counted; no delivery
// record is lost.
func (q *Queue) StopProcessing(ctx context.Context) error {
	if !q.running.CompareAndSwap(true, false) {
		return nil
	}
	close(q.stop)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the live counts.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pending := len(q.pending)
	q.mu.Unlock()

	return Stats{
		Pending:       pending,
		Processing:    int(q.processing.Load()),
		Completed:     q.completed.Load(),
		Failed:        q.failed.Load(),
		MaxConcurrent: q.cfg.MaxConcurrent,
	}
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	for {
		d := q.next()
		if d == nil {
			select {
			case <-q.stop:
				return
			case <-q.wake:
				continue
			}
		}

		select {
		case q.sem <- struct{}{}:
		case <-q.stop:
			q.requeue(d)
			return
		}

		q.wg.Add(1)
		go q.process(ctx, d)
	}
}

func (q *Queue) process(ctx context.Context, d *domain.Delivery) {
	defer func() {
		<-q.sem
		q.wg.Done()
	}()

	d.Status = domain.DeliveryProcessing
	d.UpdatedAt = time.Now().UTC()
	q.processing.Add(1)
	metrics.QueueProcessing.Set(float64(q.processing.Load()))
	defer func() {
		q.processing.Add(-1)
		metrics.QueueProcessing.Set(float64(q.processing.Load()))
	}()

	res := q.sender.Send(ctx, d, nil)
	if res.Success {
		d.Status = domain.DeliveryCompleted
		d.UpdatedAt = time.Now().UTC()
		q.completed.Add(1)
		return
	}

	d.LastError = res.Error
	if backoff.ShouldRetry(d) {
		delay := q.cfg.Backoff.Delay(d.Attempts)
		d.Attempts++
		slog.Debug("Scheduling delivery retry",
			"delivery_id", d.ID, "webhook_id", d.WebhookID,
			"attempt", d.Attempts, "delay", delay)
		q.scheduleRetry(d, delay)
		return
	}

	d.Status = domain.DeliveryFailed
	d.UpdatedAt = time.Now().UTC()
	q.failed.Add(1)
	slog.Warn("Delivery failed terminally",
		"delivery_id", d.ID, "webhook_id", d.WebhookID,
		"attempts", d.Attempts+1, "error", res.Error)

	if q.dead != nil {
		if err := q.dead.Push(ctx, d, res.Error); err != nil {
			slog.Error("Failed to push dead letter",
				"delivery_id", d.ID, "error", err)
		}
	}
}

// scheduleRetry releases the delivery back to the pending set no earlier
// than the backoff delay. On shutdown the timer is abandoned and the item is
// re-queued immediately so it is not lost; dispatch is stopped anyway.
func (q *Queue) scheduleRetry(d *domain.Delivery, delay time.Duration) {
	q.wg.Add(1)
	timer := time.NewTimer(delay)
	stop := q.stop
	go func() {
		defer q.wg.Done()
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stop:
		}
		q.requeue(d)
	}()
}

func (q *Queue) requeue(d *domain.Delivery) {
	d.Status = domain.DeliveryPending
	q.mu.Lock()
	q.pending = append(q.pending, d)
	metrics.QueuePending.Set(float64(len(q.pending)))
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) next() *domain.Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	d := q.pending[0]
	q.pending = q.pending[1:]
	metrics.QueuePending.Set(float64(len(q.pending)))
	return d
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vietddude/relay/internal/core/domain"
)

// emitted pairs an event with its subscription id on the channel.
type emitted struct {
	subscriptionID string
	event          *domain.Event
}

// ChannelSource is an in-process Source fed through Emit. The control layer
// and tests use it to inject events; a chain-connected source implements the
// same contract.
type ChannelSource struct {
	mu      sync.RWMutex
	subs    map[string]*domain.Subscription
	handler Handler

	events  chan emitted
	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// NewChannelSource creates a source with the given buffer size.
func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSource{
		subs:   make(map[string]*domain.Subscription),
		events: make(chan emitted, buffer),
	}
}

// SetHandler installs the event consumer.
func (s *ChannelSource) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start begins forwarding emitted events to the handler serially.
func (s *ChannelSource) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h == nil {
		s.running.Store(false)
		return fmt.Errorf("source has no handler")
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	h.OnStarted()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case em := <-s.events:
				h.OnEvent(em.subscriptionID, em.event)
			}
		}
	}()
	return nil
}

// Stop halts event forwarding.
func (s *ChannelSource) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	close(s.stop)
	<-s.done

	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h != nil {
		h.OnStopped()
	}
	return nil
}

// Listening reports whether the source is running.
func (s *ChannelSource) Listening() bool {
	return s.running.Load()
}

// AddSubscription registers a subscription.
func (s *ChannelSource) AddSubscription(sub *domain.Subscription) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("subscription id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.ID] = sub
	return nil
}

// RemoveSubscription drops a subscription by id.
func (s *ChannelSource) RemoveSubscription(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	return nil
}

// Emit injects one event for a subscription. It never blocks the caller;
// events emitted while the buffer is full are reported through OnError and
// dropped.
func (s *ChannelSource) Emit(subscriptionID string, e *domain.Event) {
	select {
	case s.events <- emitted{subscriptionID: subscriptionID, event: e}:
	default:
		s.mu.RLock()
		h := s.handler
		s.mu.RUnlock()
		if h != nil {
			h.OnError(fmt.Errorf("event buffer full, dropping event for subscription %s", subscriptionID))
		}
	}
}

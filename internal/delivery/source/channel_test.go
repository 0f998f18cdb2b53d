package source

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/relay/internal/core/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	events  []string
	started int
	stopped int
	errors  []error
}

func (h *recordingHandler) OnEvent(subID string, e *domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, subID)
}

func (h *recordingHandler) OnStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *recordingHandler) OnStopped() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped++
}

func (h *recordingHandler) OnError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err)
}

func testEvent() *domain.Event {
	return &domain.Event{
		ContractAddress: "0x" + strings.Repeat("ab", 20),
		EventName:       "Transfer",
		TxHash:          "0x" + strings.Repeat("cd", 32),
		Timestamp:       time.Now(),
	}
}

func TestStartRequiresHandler(t *testing.T) {
	s := NewChannelSource(8)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start without handler returned no error")
	}
	if s.Listening() {
		t.Error("source listening after failed start")
	}
}

func TestEmitReachesHandler(t *testing.T) {
	s := NewChannelSource(8)
	h := &recordingHandler{}
	s.SetHandler(h)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	s.Emit("sub-1", testEvent())
	s.Emit("sub-2", testEvent())

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.events)
		h.mu.Unlock()
		if n == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("events not forwarded to handler")
}

func TestLifecycleCallbacks(t *testing.T) {
	s := NewChannelSource(8)
	h := &recordingHandler{}
	s.SetHandler(h)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("second Start: %v, want no-op", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v, want no-op", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started != 1 || h.stopped != 1 {
		t.Errorf("started=%d stopped=%d, want 1/1", h.started, h.stopped)
	}
}

func TestEmitOverflowReportsError(t *testing.T) {
	s := NewChannelSource(1)
	h := &recordingHandler{}
	s.SetHandler(h)
	// Not started: nothing drains the buffer.

	s.Emit("sub-1", testEvent())
	s.Emit("sub-1", testEvent())

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.errors) != 1 {
		t.Errorf("errors = %d, want 1 overflow report", len(h.errors))
	}
}

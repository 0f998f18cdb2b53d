package health

import (
	"sync"
	"time"

	"github.com/vietddude/relay/internal/delivery/breaker"
	"github.com/vietddude/relay/internal/delivery/processor"
)

// Monitor aggregates health status from the processor and breaker registry.
type Monitor struct {
	proc     *processor.Processor
	breakers *breaker.Registry

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a health monitor.
func NewMonitor(proc *processor.Processor, breakers *breaker.Registry) *Monitor {
	return &Monitor{proc: proc, breakers: breakers}
}

// Check builds a health report. Reports are cached briefly so frequent
// polling stays cheap.
func (m *Monitor) Check() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 2*time.Second && m.lastReport.Status != "" {
		return m.lastReport
	}

	stats := m.proc.Stats()
	report := Report{
		Status:        StatusHealthy,
		Running:       stats.Running,
		Subscriptions: stats.Subscriptions,
		Pending:       stats.Queue.Pending,
		Processing:    stats.Queue.Processing,
		Completed:     stats.Queue.Completed,
		Failed:        stats.Queue.Failed,
		MaxConcurrent: stats.Queue.MaxConcurrent,
		Circuits:      map[string]any{},
	}

	for id, snap := range m.breakers.Snapshots() {
		report.Circuits[id] = snap
		if snap.State != breaker.StateClosed {
			report.OpenCircuits = append(report.OpenCircuits, id)
		}
	}

	switch {
	case !stats.Running:
		report.Status = StatusCritical
	case len(report.OpenCircuits) > 0 || report.Pending > 10*stats.Queue.MaxConcurrent:
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

package health

// Status represents overall pipeline health.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// Report is the detailed health view returned by the monitor.
type Report struct {
	Status        Status         `json:"status"`
	Running       bool           `json:"running"`
	Subscriptions int            `json:"subscriptions"`
	Pending       int            `json:"pending"`
	Processing    int            `json:"processing"`
	Completed     uint64         `json:"completed"`
	Failed        uint64         `json:"failed"`
	MaxConcurrent int            `json:"max_concurrent"`
	OpenCircuits  []string       `json:"open_circuits,omitempty"`
	Circuits      map[string]any `json:"circuits,omitempty"`
}

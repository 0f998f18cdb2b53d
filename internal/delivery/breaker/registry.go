package breaker

import "sync"

// Registry holds one breaker per webhook id, created lazily on first use.
// Breakers never share state across webhook ids.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for a webhook id, creating it if needed.
func (r *Registry) Get(webhookID string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[webhookID]
	if !ok {
		b = New(r.cfg)
		r.breakers[webhookID] = b
	}
	return b
}

// Snapshots returns current breaker state keyed by webhook id.
func (r *Registry) Snapshots() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for id, b := range r.breakers {
		out[id] = b.Snapshot()
	}
	return out
}

package capability

import (
	"sync"

	"github.com/mpaguilar/msa-toy/internal/domain"
)

// Registry holds capabilities by name and remembers registration order.
// The first registered capability is the default.
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]domain.Capability
}

func NewRegistry(caps ...domain.Capability) *Registry {
	r := &Registry{caps: make(map[string]domain.Capability)}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing a capability of the same name in place.
func (r *Registry) Register(c domain.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, ok := r.caps[name]; !ok {
		r.order = append(r.order, name)
	}
	r.caps[name] = c
}

func (r *Registry) Get(name string) (domain.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Default() (domain.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil, false
	}
	return r.caps[r.order[0]], true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

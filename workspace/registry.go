package workspace

import (
	"sync"
	"time"

	"sitegen/metrics"
)

// Registry maps a signed-in user to their workspace.
type Registry struct {
	mu      sync.RWMutex
	spaces  map[string]*Workspace
	metrics *metrics.Collector
}

func NewRegistry(m *metrics.Collector) *Registry {
	return &Registry{spaces: make(map[string]*Workspace), metrics: m}
}

// Get returns the user's workspace, creating it on first use.
func (r *Registry) Get(userID string) *Workspace {
	r.mu.RLock()
	w, ok := r.spaces[userID]
	r.mu.RUnlock()
	if ok {
		return w
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.spaces[userID]; ok {
		return w
	}
	w = New()
	r.spaces[userID] = w
	r.updateGauge()
	return w
}

// Forget drops the user's workspace, e.g. on logout.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spaces, userID)
	r.updateGauge()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.spaces)
}

// Sweep evicts workspaces untouched for longer than maxIdle. Workspaces with a
// submission in flight are kept. It returns the number evicted.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, w := range r.spaces {
		seen, busy := w.idleSince()
		if !busy && seen.Before(cutoff) {
			delete(r.spaces, id)
			n++
		}
	}
	r.updateGauge()
	return n
}

// 呼び出し側で r.mu を保持していること
func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.ActiveWorkspaces.Set(float64(len(r.spaces)))
	}
}

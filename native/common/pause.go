package common

import "sync"

// PauseRegistry is a concrete, in-memory PauseView: a map of module name to
// paused flag, guarded by a mutex, in the teacher's Node.modulePauses style
// (core/node.go SetModulePauses/IsPaused in the teacher repo). An operator
// surface (an admin RPC, a CLI flag) flips entries here to halt submissions
// to a single module without stopping the whole engine.
type PauseRegistry struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauseRegistry constructs an empty registry; every module starts
// unpaused.
func NewPauseRegistry() *PauseRegistry {
	return &PauseRegistry{paused: make(map[string]bool)}
}

// IsPaused implements PauseView.
func (r *PauseRegistry) IsPaused(module string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused[module]
}

// SetPaused pauses or resumes a module.
func (r *PauseRegistry) SetPaused(module string, paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused == nil {
		r.paused = make(map[string]bool)
	}
	r.paused[module] = paused
}

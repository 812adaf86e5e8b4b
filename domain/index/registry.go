package index

import (
	"sync"

	"kaku/domain/core/valueobjects"
)

// Registry holds one ProjectIndex per project. Indices are created with
// their project and swapped wholesale on rebuild.
type Registry struct {
	mu       sync.RWMutex
	projects map[valueobjects.ProjectID]*ProjectIndex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{projects: make(map[valueobjects.ProjectID]*ProjectIndex)}
}

// Get returns the index of a project
func (r *Registry) Get(id valueobjects.ProjectID) (*ProjectIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pi, ok := r.projects[id]
	return pi, ok
}

// Ensure returns the project's index, creating an empty one if needed
func (r *Registry) Ensure(id valueobjects.ProjectID) *ProjectIndex {
	if pi, ok := r.Get(id); ok {
		return pi
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if pi, ok := r.projects[id]; ok {
		return pi
	}
	pi := NewProjectIndex(id)
	r.projects[id] = pi
	return pi
}

// Replace installs a freshly built index
func (r *Registry) Replace(pi *ProjectIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[pi.ProjectID()] = pi
}

// Drop removes a project's index
func (r *Registry) Drop(id valueobjects.ProjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
}

// Projects lists the indexed projects
func (r *Registry) Projects() []valueobjects.ProjectID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]valueobjects.ProjectID, 0, len(r.projects))
	for id := range r.projects {
		out = append(out, id)
	}
	return out
}

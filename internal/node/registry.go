package node

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is an id-keyed set of node handles with a capacity ceiling.
// Each provider owns its own registry and never hands it out.
type Registry[T any] struct {
	mu    sync.RWMutex
	max   int
	nodes map[string]T
}

// NewRegistry creates a registry. max <= 0 means unlimited.
func NewRegistry[T any](max int) *Registry[T] {
	return &Registry[T]{
		max:   max,
		nodes: make(map[string]T),
	}
}

// Full reports whether another node would exceed the capacity.
func (r *Registry[T]) Full() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fullLocked()
}

func (r *Registry[T]) fullLocked() bool {
	return r.max > 0 && len(r.nodes) >= r.max
}

// Insert registers a handle. The capacity check and insert happen under one lock.
func (r *Registry[T]) Insert(id string, handle T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fullLocked() {
		return fmt.Errorf("%w (max %d)", ErrNodesLimitReached, r.max)
	}
	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("node %q already registered", id)
	}
	r.nodes[id] = handle
	return nil
}

// Get returns the handle for id or a NodeError wrapping ErrNodeNotFound.
func (r *Registry[T]) Get(id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handle, ok := r.nodes[id]
	if !ok {
		var zero T
		return zero, &NodeError{NodeID: id, Err: ErrNodeNotFound}
	}
	return handle, nil
}

// Remove deletes id and reports whether it was present.
func (r *Registry[T]) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return false
	}
	delete(r.nodes, id)
	return true
}

// Len returns the number of registered handles.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// IDs returns the registered ids in sorted order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package thread

import (
	"context"
	"sort"
	"sync"

	"motive/kernel"
)

// Registry maps native threads to the Thread that owns them.
//
// It is created at bring-up and closed at shutdown. Entries are added when a
// native thread is created (or adopted by Synch) and removed when it is
// deleted. The registry never keeps a thread alive.
type Registry struct {
	mu      sync.Mutex
	entries map[*kernel.Thread]Thread
	closed  bool
}

// Info describes a registered thread.
type Info struct {
	ID       kernel.ThreadID
	Name     string
	Type     Type
	Priority Priority
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[*kernel.Thread]Thread)}
}

// Associate records t as the owner of native. It fails if either is nil,
// native is already owned or the registry is closed.
func (r *Registry) Associate(native *kernel.Thread, t Thread) bool {
	if native == nil || t == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	if _, ok := r.entries[native]; ok {
		return false
	}
	r.entries[native] = t
	return true
}

// Deassociate removes the entry of native if t owns it.
func (r *Registry) Deassociate(native *kernel.Thread, t Thread) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.entries[native]
	if !ok || owner != t {
		return false
	}
	delete(r.entries, native)
	return true
}

// Lookup returns the owner of native.
func (r *Registry) Lookup(native *kernel.Thread) (Thread, bool) {
	if native == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[native]
	return t, ok
}

// Running returns the Thread executing with ctx.
func (r *Registry) Running(ctx context.Context) (Thread, bool) {
	return r.Lookup(kernel.Running(ctx))
}

// Len returns the number of registered threads.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Threads returns the registered threads ordered by native id.
func (r *Registry) Threads() []Thread {
	r.mu.Lock()
	natives := r.sortedLocked()
	out := make([]Thread, len(natives))
	for i, n := range natives {
		out[i] = r.entries[n]
	}
	r.mu.Unlock()
	return out
}

// Snapshot describes the registered threads ordered by native id.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	natives := r.sortedLocked()
	owners := make([]Thread, len(natives))
	for i, n := range natives {
		owners[i] = r.entries[n]
	}
	r.mu.Unlock()

	out := make([]Info, len(natives))
	for i, n := range natives {
		t := owners[i]
		out[i] = Info{ID: n.ID(), Name: t.Name(), Type: t.Type(), Priority: t.Priority()}
	}
	return out
}

func (r *Registry) sortedLocked() []*kernel.Thread {
	natives := make([]*kernel.Thread, 0, len(r.entries))
	for n := range r.entries {
		natives = append(natives, n)
	}
	sort.Slice(natives, func(i, j int) bool { return natives[i].ID() < natives[j].ID() })
	return natives
}

// Close drops every entry and refuses new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	clear(r.entries)
}

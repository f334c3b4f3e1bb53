package watcher

import (
	"errors"
	"sort"
	"sync"
)

// watchEntry owns the OS watch and trigger pipeline of one project.
// Only the manager creates entries and only through the registry are they
// reachable; nothing else holds the debouncer.
type watchEntry struct {
	key       ProjectKey
	debouncer *Debouncer
	pipeline  *pipeline
}

// release closes the OS watch first so no new signal can be produced, then
// closes the signal queue, which ends the pipeline goroutine once any
// in-flight run has finished.
func (e *watchEntry) release() error {
	err := e.debouncer.Close()
	e.pipeline.close()
	return err
}

// registry maps project keys to active watches. A single mutex covers every
// operation and is never held across I/O.
type registry struct {
	mu      sync.Mutex
	entries map[ProjectKey]*watchEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[ProjectKey]*watchEntry)}
}

// Contains reports whether key has an active watch.
func (r *registry) Contains(key ProjectKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Get returns the entry for key.
func (r *registry) Get(key ProjectKey) (*watchEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	return e, ok
}

// InsertIfAbsent stores entry unless key is already present, as one atomic
// step. It returns false when an entry already existed; the caller then owns
// the rejected entry and must release it.
func (r *registry) InsertIfAbsent(key ProjectKey, entry *watchEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; ok {
		return false
	}
	r.entries[key] = entry
	return true
}

// Remove deletes and returns the entry for key. The caller releases it
// outside the lock.
func (r *registry) Remove(key ProjectKey) (*watchEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	return e, ok
}

// Clear removes and returns every entry.
func (r *registry) Clear() []*watchEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*watchEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.entries = make(map[ProjectKey]*watchEntry)
	return out
}

// Keys returns the watched keys in sorted order.
func (r *registry) Keys() []ProjectKey {
	r.mu.Lock()
	keys := make([]ProjectKey, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len returns the number of active watches.
func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// releaseAll releases entries and joins their errors.
func releaseAll(entries []*watchEntry) error {
	var errs []error
	for _, e := range entries {
		if err := e.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	// Listener receives every inbound message. Listeners run on the client's
	// event loop and should return quickly
	Listener func(api.Message)

	listenerEntry struct {
		fn      Listener
		removed atomic.Bool
	}

	registry struct {
		entries []*listenerEntry
		mu      sync.Mutex
	}
)

func (r *registry) add(fn Listener) func() {
	e := &listenerEntry{fn: fn}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.removed.Store(true)
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, cur := range r.entries {
				if cur == e {
					r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshot returns the current entries. Dispatch iterates the snapshot so
// listeners may add or remove listeners while being invoked
func (r *registry) snapshot() []*listenerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.removed.Store(true)
	}
	r.entries = nil
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

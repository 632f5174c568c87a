package realtime

import (
	"slices"
	"sync"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

// ledger is the set of topics the application wants live updates for. It
// outlives individual connections and is replayed on every open
type ledger struct {
	topics map[api.Topic]struct{}
	mu     sync.RWMutex
}

func newLedger() *ledger {
	return &ledger{topics: map[api.Topic]struct{}{}}
}

func (l *ledger) add(t api.Topic) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.topics[t]; ok {
		return false
	}
	l.topics[t] = struct{}{}
	return true
}

func (l *ledger) remove(t api.Topic) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.topics[t]; !ok {
		return false
	}
	delete(l.topics, t)
	return true
}

func (l *ledger) contains(t api.Topic) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.topics[t]
	return ok
}

// list returns the topics in sorted order
func (l *ledger) list() []api.Topic {
	l.mu.RLock()
	res := make([]api.Topic, 0, len(l.topics))
	for t := range l.topics {
		res = append(res, t)
	}
	l.mu.RUnlock()
	slices.Sort(res)
	return res
}

func (l *ledger) clear() {
	l.mu.Lock()
	clear(l.topics)
	l.mu.Unlock()
}

package watch

import (
	"log/slog"
	"sync"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

// AdminFeed keeps the latest admin-update messages
type AdminFeed struct {
	items []api.AdminUpdate
	limit int
	mu    sync.RWMutex
}

const DefaultAdminFeedSize = 50

// NewAdminFeed creates an AdminFeed holding at most limit updates
func NewAdminFeed(limit int) *AdminFeed {
	return &AdminFeed{limit: max(limit, 1)}
}

// Handle records admin-update messages and ignores everything else
func (f *AdminFeed) Handle(msg api.Message) {
	if msg.Type != api.MessageAdminUpdate {
		return
	}
	var u api.AdminUpdate
	if err := msg.Decode(&u); err != nil {
		slog.Warn("Ignoring malformed admin update",
			log.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, u)
	if over := len(f.items) - f.limit; over > 0 {
		f.items = append(f.items[:0:0], f.items[over:]...)
	}
}

// Latest returns the retained updates, newest first
func (f *AdminFeed) Latest() []api.AdminUpdate {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res := make([]api.AdminUpdate, len(f.items))
	for i, u := range f.items {
		res[len(f.items)-1-i] = u
	}
	return res
}

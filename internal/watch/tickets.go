package watch

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

// TicketWatch remembers the most recent state of recently updated tickets
type TicketWatch struct {
	cache *lru.Cache[string, api.Ticket]
}

const DefaultTicketCacheSize = 1024

// NewTicketWatch creates a TicketWatch holding at most size tickets
func NewTicketWatch(size int) (*TicketWatch, error) {
	cache, err := lru.New[string, api.Ticket](size)
	if err != nil {
		return nil, err
	}
	return &TicketWatch{cache: cache}, nil
}

// Handle records ticket-update messages and ignores everything else
func (w *TicketWatch) Handle(msg api.Message) {
	if msg.Type != api.MessageTicketUpdate {
		return
	}
	var tk api.Ticket
	if err := msg.Decode(&tk); err != nil || tk.ID == "" {
		slog.Warn("Ignoring malformed ticket update",
			log.Error(err))
		return
	}
	w.Put(tk)
}

// Put records a ticket, for example one fetched over REST
func (w *TicketWatch) Put(tk api.Ticket) {
	w.cache.Add(tk.ID, tk)
}

// Get returns the latest known state of a ticket
func (w *TicketWatch) Get(id string) (api.Ticket, bool) {
	return w.cache.Get(id)
}

// Recent returns the tracked ticket ids, least recently updated first
func (w *TicketWatch) Recent() []string {
	return w.cache.Keys()
}

// Len returns the number of tracked tickets
func (w *TicketWatch) Len() int {
	return w.cache.Len()
}

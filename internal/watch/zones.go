package watch

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

type (
	// ZoneBoard holds the zones of one or more gates and folds zone-update
	// messages into them
	ZoneBoard struct {
		zones    map[string]api.Zone
		onChange func(api.Zone)
		now      func() time.Time
		mu       sync.RWMutex
	}

	// ZoneBoardOption configures a ZoneBoard
	ZoneBoardOption func(*ZoneBoard)
)

// WithZoneChange registers fn to be called with every updated zone
func WithZoneChange(fn func(api.Zone)) ZoneBoardOption {
	return func(b *ZoneBoard) {
		b.onChange = fn
	}
}

// WithClock sets the clock used to stamp updates that carry no updatedAt
func WithClock(now func() time.Time) ZoneBoardOption {
	return func(b *ZoneBoard) {
		b.now = now
	}
}

// NewZoneBoard creates an empty ZoneBoard
func NewZoneBoard(opts ...ZoneBoardOption) *ZoneBoard {
	b := &ZoneBoard{
		zones: map[string]api.Zone{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Seed adds or replaces zones, typically with the result of a REST fetch
func (b *ZoneBoard) Seed(zones ...api.Zone) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, z := range zones {
		b.zones[z.ID] = z
	}
}

// Zone returns the current state of a zone
func (b *ZoneBoard) Zone(id string) (api.Zone, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	z, ok := b.zones[id]
	return z, ok
}

// Snapshot returns every zone ordered by id
func (b *ZoneBoard) Snapshot() []api.Zone {
	b.mu.RLock()
	res := make([]api.Zone, 0, len(b.zones))
	for _, z := range b.zones {
		res = append(res, z)
	}
	b.mu.RUnlock()
	slices.SortFunc(res, func(l, r api.Zone) int {
		return strings.Compare(l.ID, r.ID)
	})
	return res
}

// Handle applies zone-update messages and ignores everything else
func (b *ZoneBoard) Handle(msg api.Message) {
	if msg.Type != api.MessageZoneUpdate {
		return
	}
	var u api.ZoneUpdate
	if err := msg.Decode(&u); err != nil {
		slog.Warn("Ignoring malformed zone update",
			log.Error(err))
		return
	}
	b.Apply(u)
}

// Apply merges a partial update into a known zone. Updates for zones the
// board was never seeded with are ignored and reported as not applied
func (b *ZoneBoard) Apply(u api.ZoneUpdate) (api.Zone, bool) {
	b.mu.Lock()
	z, ok := b.zones[u.ID]
	if !ok {
		b.mu.Unlock()
		return api.Zone{}, false
	}
	z = mergeZone(z, u, b.now())
	b.zones[z.ID] = z
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(z)
	}
	return z, true
}

func mergeZone(z api.Zone, u api.ZoneUpdate, now time.Time) api.Zone {
	set(&z.Name, u.Name)
	set(&z.CategoryID, u.CategoryID)
	set(&z.CategoryName, u.CategoryName)
	set(&z.TotalSlots, u.TotalSlots)
	set(&z.Occupied, u.Occupied)
	set(&z.Free, u.Free)
	set(&z.AvailableForVisitors, u.AvailableForVisitors)
	set(&z.AvailableForSubscribers, u.AvailableForSubscribers)
	set(&z.RateNormal, u.RateNormal)
	set(&z.RateSpecial, u.RateSpecial)
	set(&z.SpecialActive, u.SpecialActive)
	set(&z.Open, u.Open)
	set(&z.IsVIP, u.IsVIP)
	set(&z.IsMaintenance, u.IsMaintenance)
	if u.Reserved != nil {
		z.Reserved = *u.Reserved
		z.ReservedSlots = *u.Reserved
	}

	z.AvailableSlots = z.AvailableForVisitors
	z.IsDisabled = !z.Open || z.Free <= 0
	if u.UpdatedAt != nil {
		z.UpdatedAt = *u.UpdatedAt
	} else {
		z.UpdatedAt = now.UTC().Format(time.RFC3339Nano)
	}
	if z.GateIDs == nil {
		z.GateIDs = []string{}
	}
	return z
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

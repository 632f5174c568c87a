package watch_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MostafaGamal7/parking-realtime/internal/watch"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

var stamp = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func zoneMessage(raw string) api.Message {
	return api.Message{
		Type:    api.MessageZoneUpdate,
		Payload: json.RawMessage(raw),
	}
}

func seededBoard(opts ...watch.ZoneBoardOption) *watch.ZoneBoard {
	opts = append(opts, watch.WithClock(func() time.Time { return stamp }))
	b := watch.NewZoneBoard(opts...)
	b.Seed(
		api.Zone{
			ID: "zone_b", Name: "Zone B", Free: 4, Open: true,
			AvailableForVisitors: 3, GateIDs: []string{"gate_1"},
		},
		api.Zone{
			ID: "zone_a", Name: "Zone A", Free: 10, Open: true,
			AvailableForVisitors: 8, Reserved: 1, ReservedSlots: 1,
		},
	)
	return b
}

func TestZoneBoardMergesPartialUpdate(t *testing.T) {
	b := seededBoard()
	b.Handle(zoneMessage(
		`{"id":"zone_a","free":6,"availableForVisitors":5,"reserved":3}`,
	))

	z, ok := b.Zone("zone_a")
	assert.True(t, ok)
	assert.Equal(t, "Zone A", z.Name)
	assert.Equal(t, 6, z.Free)
	assert.Equal(t, 5, z.AvailableSlots)
	assert.Equal(t, 3, z.Reserved)
	assert.Equal(t, 3, z.ReservedSlots)
	assert.False(t, z.IsDisabled)
	assert.Equal(t, stamp.Format(time.RFC3339Nano), z.UpdatedAt)
	assert.Equal(t, []string{}, z.GateIDs)
}

func TestZoneBoardDisablesClosedOrFullZones(t *testing.T) {
	b := seededBoard()

	b.Handle(zoneMessage(`{"id":"zone_a","open":false}`))
	z, _ := b.Zone("zone_a")
	assert.True(t, z.IsDisabled)
	assert.Equal(t, 10, z.Free)

	b.Handle(zoneMessage(`{"id":"zone_b","free":0}`))
	z, _ = b.Zone("zone_b")
	assert.True(t, z.IsDisabled)
	assert.True(t, z.Open)
	assert.Equal(t, []string{"gate_1"}, z.GateIDs)
}

func TestZoneBoardKeepsServerTimestamp(t *testing.T) {
	b := seededBoard()
	b.Handle(zoneMessage(`{"id":"zone_b","updatedAt":"2025-01-01T00:00:00Z"}`))
	z, _ := b.Zone("zone_b")
	assert.Equal(t, "2025-01-01T00:00:00Z", z.UpdatedAt)
}

func TestZoneBoardIgnoresUnknownZones(t *testing.T) {
	var changed []api.Zone
	b := seededBoard(watch.WithZoneChange(func(z api.Zone) {
		changed = append(changed, z)
	}))

	_, ok := b.Apply(api.ZoneUpdate{ID: "zone_x"})
	assert.False(t, ok)
	b.Handle(zoneMessage(`{"id":"zone_x","free":1}`))
	b.Handle(zoneMessage(`not json`))
	b.Handle(api.Message{Type: api.MessageTicketUpdate})
	assert.Empty(t, changed)
	assert.Len(t, b.Snapshot(), 2)

	b.Handle(zoneMessage(`{"id":"zone_b","free":2}`))
	assert.Len(t, changed, 1)
	assert.Equal(t, 2, changed[0].Free)
}

func TestZoneBoardSnapshotOrder(t *testing.T) {
	b := seededBoard()
	snap := b.Snapshot()
	assert.Equal(t, "zone_a", snap[0].ID)
	assert.Equal(t, "zone_b", snap[1].ID)
}

package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostafaGamal7/parking-realtime/internal/assert/helpers"
	"github.com/MostafaGamal7/parking-realtime/internal/auth"
	"github.com/MostafaGamal7/parking-realtime/internal/client"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

func seededBackend(t *testing.T) *helpers.Backend {
	t.Helper()
	b := helpers.NewBackend(t)
	b.AddGate(
		api.Gate{ID: "gate_1", Name: "Main Entrance", ZoneIDs: []string{"zone_a"}},
		api.Zone{ID: "zone_a", Name: "Zone A", Free: 12, Open: true},
	)
	b.AddTicket(api.Ticket{
		ID: "t_1", Type: api.TicketVisitor, ZoneID: "zone_a", GateID: "gate_1",
	})
	return b
}

func TestGetGatesAndZones(t *testing.T) {
	b := seededBackend(t)
	c := client.NewHTTPClient(helpers.NewTestConfig(b), nil)
	ctx := context.Background()

	gates, err := c.GetGates(ctx)
	require.NoError(t, err)
	require.Len(t, gates, 1)
	assert.Equal(t, "Main Entrance", gates[0].Name)

	zones, err := c.GetZones(ctx, "gate_1")
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, 12, zones[0].Free)
	assert.True(t, zones[0].Open)
}

func TestGetTicket(t *testing.T) {
	b := seededBackend(t)
	c := client.NewHTTPClient(helpers.NewTestConfig(b), nil)

	tk, err := c.GetTicket(context.Background(), "t_1")
	require.NoError(t, err)
	assert.Equal(t, api.TicketVisitor, tk.Type)

	_, err = c.GetTicket(context.Background(), "missing")
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.ErrorIs(t, err, client.ErrHTTPError)
	assert.Contains(t, err.Error(), "Ticket not found")
}

func TestBearerToken(t *testing.T) {
	b := seededBackend(t)
	b.RequireToken("secret")
	cfg := helpers.NewTestConfig(b)

	_, err := client.NewHTTPClient(cfg, nil).GetGates(context.Background())
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.NotErrorIs(t, err, client.ErrNotFound)

	c := client.NewHTTPClient(cfg, auth.StaticToken("secret"))
	gates, err := c.GetGates(context.Background())
	assert.NoError(t, err)
	assert.Len(t, gates, 1)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		},
	))
	t.Cleanup(srv.Close)

	cfg := helpers.NewTestConfig(nil)
	cfg.APIURL = srv.URL
	c := client.NewHTTPClient(cfg, nil)

	for range 5 {
		_, err := c.GetGates(context.Background())
		assert.ErrorIs(t, err, client.ErrHTTPError)
	}
	_, err := c.GetGates(context.Background())
	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	b := seededBackend(t)
	c := client.NewHTTPClient(helpers.NewTestConfig(b), nil)

	for range 8 {
		_, err := c.GetZones(context.Background(), "unknown")
		assert.ErrorIs(t, err, client.ErrNotFound)
	}
	zones, err := c.GetZones(context.Background(), "gate_1")
	assert.NoError(t, err)
	assert.Len(t, zones, 1)
}

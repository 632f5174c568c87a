package realtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MostafaGamal7/parking-realtime/internal/config"
	"github.com/MostafaGamal7/parking-realtime/internal/realtime"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

func defaultReconnect() api.ReconnectConfig {
	return config.NewDefaultConfig().Reconnect
}

func TestExponentialBackoff(t *testing.T) {
	b := realtime.NewBackoff(defaultReconnect(), nil)

	assert.Equal(t, time.Second, b.Base(1))
	assert.Equal(t, 1500*time.Millisecond, b.Base(2))
	assert.Equal(t, 2250*time.Millisecond, b.Base(3))

	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		cur := b.Base(n)
		assert.GreaterOrEqual(t, cur, prev)
		assert.LessOrEqual(t, cur, 30*time.Second)
		prev = cur
	}
}

func TestBackoffCap(t *testing.T) {
	b := realtime.NewBackoff(defaultReconnect(), nil)

	assert.InDelta(t,
		float64(25629*time.Millisecond), float64(b.Base(9)),
		float64(time.Millisecond),
	)
	assert.Less(t, b.Base(9), 30*time.Second)
	assert.Equal(t, 30*time.Second, b.Base(10))
	assert.Equal(t, 30*time.Second, b.Base(50))
}

func TestBackoffJitterBounds(t *testing.T) {
	cfg := defaultReconnect()

	low := realtime.NewBackoff(cfg, func() float64 { return 0 })
	assert.Equal(t, time.Second, low.Delay(1))

	high := realtime.NewBackoff(cfg, func() float64 { return 0.999 })
	d := high.Delay(1)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 2*time.Second)

	capped := high.Delay(30)
	assert.GreaterOrEqual(t, capped, 30*time.Second)
	assert.Less(t, capped, 31*time.Second)

	b := realtime.NewBackoff(cfg, nil)
	for range 100 {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
}

func TestBackoffWithoutJitter(t *testing.T) {
	cfg := defaultReconnect()
	cfg.Jitter = 0
	b := realtime.NewBackoff(cfg, func() float64 { return 0.9 })
	assert.Equal(t, b.Base(4), b.Delay(4))
}

func TestBackoffTypes(t *testing.T) {
	cfg := defaultReconnect()

	cfg.BackoffType = api.BackoffTypeLinear
	linear := realtime.NewBackoff(cfg, nil)
	assert.Equal(t, time.Second, linear.Base(1))
	assert.Equal(t, 3*time.Second, linear.Base(3))
	assert.Equal(t, 30*time.Second, linear.Base(45))

	cfg.BackoffType = api.BackoffTypeFixed
	fixed := realtime.NewBackoff(cfg, nil)
	assert.Equal(t, time.Second, fixed.Base(1))
	assert.Equal(t, time.Second, fixed.Base(8))

	cfg.BackoffType = "unknown"
	fallback := realtime.NewBackoff(cfg, nil)
	assert.Equal(t, 1500*time.Millisecond, fallback.Base(2))
}

func TestBackoffClampsAttempt(t *testing.T) {
	b := realtime.NewBackoff(defaultReconnect(), nil)
	assert.Equal(t, b.Base(1), b.Base(0))
	assert.Equal(t, b.Base(1), b.Base(-3))
}

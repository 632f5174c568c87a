package realtime

import "time"

type (
	// Timer is a pending one-shot callback
	Timer interface {
		Stop() bool
	}

	// AfterFunc schedules fn to run once after delay. Reconnect backoff and
	// liveness checks are scheduled through it
	AfterFunc func(delay time.Duration, fn func()) Timer
)

// SystemAfterFunc schedules fn on the runtime timer heap
func SystemAfterFunc(delay time.Duration, fn func()) Timer {
	return time.AfterFunc(delay, fn)
}

func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}

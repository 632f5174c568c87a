package realtime_test

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MostafaGamal7/parking-realtime/internal/config"
	"github.com/MostafaGamal7/parking-realtime/internal/realtime"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	fakeDialer struct {
		fail  func(attempt int) error
		urls  []string
		conns []*fakeConn
		mu    sync.Mutex
	}

	fakeConn struct {
		inbound   chan []byte
		dropped   chan error
		done      chan struct{}
		pingErr   error
		sent      [][]byte
		closeCode int
		closeOnce sync.Once
		mu        sync.Mutex
	}

	manualTimers struct {
		timers []*manualTimer
		mu     sync.Mutex
	}

	manualTimer struct {
		fn      func()
		delay   time.Duration
		stopped bool
		fired   bool
	}

	staticTokens string
)

const (
	waitTimeout  = 2 * time.Second
	waitInterval = 5 * time.Millisecond
	livenessTick = time.Hour
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.WebSocketURL = "ws://parking.test/api/v1/ws"
	cfg.Reconnect.BaseDelay = 5 * time.Millisecond
	cfg.Reconnect.MaxDelay = 20 * time.Millisecond
	cfg.Reconnect.Jitter = 0
	cfg.LivenessInterval = livenessTick
	return cfg
}

func newTestClient(
	t *testing.T, cfg *config.Config, deps realtime.Dependencies,
) *realtime.Client {
	t.Helper()
	c, err := realtime.New(cfg, deps)
	assert.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, cond func() bool, msg ...any) {
	t.Helper()
	assert.Eventually(t, cond, waitTimeout, waitInterval, msg...)
}

func (d *fakeDialer) Dial(_ context.Context, url string) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.fail != nil {
		if err := d.fail(len(d.urls)); err != nil {
			return nil, err
		}
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) lastURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.urls) == 0 {
		return ""
	}
	return d.urls[len(d.urls)-1]
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		dropped: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case err := <-c.dropped:
		return nil, err
	case <-c.done:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Close(code int, _ string) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeConn) push(raw string) {
	c.inbound <- []byte(raw)
}

func (c *fakeConn) drop(code int) {
	c.dropped <- &realtime.CloseError{Code: code, Reason: "dropped"}
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) code() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}

func (c *fakeConn) frames() []api.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]api.Frame, 0, len(c.sent))
	for _, data := range c.sent {
		var f api.Frame
		if err := json.Unmarshal(data, &f); err == nil {
			res = append(res, f)
		}
	}
	return res
}

func (c *fakeConn) topicsFor(typ api.MessageType) []api.Topic {
	var res []api.Topic
	for _, f := range c.frames() {
		if f.Type == typ {
			res = append(res, f.Payload.GateID)
		}
	}
	return res
}

func (c *fakeConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (m *manualTimers) AfterFunc(delay time.Duration, fn func()) realtime.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{delay: delay, fn: fn}
	m.timers = append(m.timers, t)
	return &manualHandle{timers: m, timer: t}
}

// retryDelays returns the delays of every reconnect timer scheduled so far
func (m *manualTimers) retryDelays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []time.Duration
	for _, t := range m.timers {
		if t.delay != livenessTick {
			res = append(res, t.delay)
		}
	}
	return res
}

// fire runs the pending timers selected by match and reports how many ran
func (m *manualTimers) fire(match func(time.Duration) bool) int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired && match(t.delay) {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (m *manualTimers) fireRetry() int {
	return m.fire(func(d time.Duration) bool { return d != livenessTick })
}

func (m *manualTimers) fireLiveness() int {
	return m.fire(func(d time.Duration) bool { return d == livenessTick })
}

type manualHandle struct {
	timers *manualTimers
	timer  *manualTimer
}

func (h *manualHandle) Stop() bool {
	h.timers.mu.Lock()
	defer h.timers.mu.Unlock()
	if h.timer.stopped || h.timer.fired {
		return false
	}
	h.timer.stopped = true
	return true
}

func (s staticTokens) Token() (string, error) {
	return string(s), nil
}

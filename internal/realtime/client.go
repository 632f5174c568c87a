package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MostafaGamal7/parking-realtime/internal/config"
	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	// Client maintains one logical connection to the backend event stream.
	// It replays the subscription ledger on every (re)connection and fans
	// every inbound message out to all registered listeners. Public methods
	// never block on the network
	Client struct {
		id          string
		url         string
		dialer      Dialer
		tokens      TokenProvider
		afterFunc   AfterFunc
		backoff     *Backoff
		maxAttempts int
		liveness    time.Duration
		logger      *slog.Logger
		runner      *TaskRunner
		topics      *ledger
		listeners   *registry
		closeOnce   sync.Once

		// owned by the event loop
		conn       Conn
		connID     string
		sent       map[api.Topic]struct{}
		cancelDial func()
		retry      Timer
		ping       Timer

		mu       sync.RWMutex
		gen      uint64
		epoch    uint64
		phase    phase
		failures int
		lastErr  error
	}

	// Dependencies supplies the collaborators of a Client. Zero values
	// select the production implementations
	Dependencies struct {
		Dialer    Dialer
		Tokens    TokenProvider
		AfterFunc AfterFunc
		Logger    *slog.Logger
		Random    func() float64
	}

	// TokenProvider supplies the credential appended to the stream URL
	TokenProvider interface {
		Token() (string, error)
	}

	phase int
)

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseOpen
	phaseWaiting
	phaseDisconnected
	phaseExhausted
)

var (
	ErrReconnectExhausted = errors.New(
		"unable to connect to server, reload to try again",
	)
	ErrMalformedFrame = errors.New("malformed frame")
)

// New creates a Client for the configured event stream. The client stays
// idle until Start or Subscribe is called
func New(cfg *config.Config, deps Dependencies) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Dialer == nil {
		deps.Dialer = NewWebSocketDialer(nil)
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = SystemAfterFunc
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	id := uuid.NewString()
	c := &Client{
		id:          id,
		url:         cfg.WebSocketURL,
		dialer:      deps.Dialer,
		tokens:      deps.Tokens,
		afterFunc:   deps.AfterFunc,
		backoff:     NewBackoff(cfg.Reconnect, deps.Random),
		maxAttempts: cfg.Reconnect.MaxAttempts,
		liveness:    cfg.LivenessInterval,
		logger:      deps.Logger.With(slog.String("client_id", id)),
		runner:      NewTaskRunner(),
		topics:      newLedger(),
		listeners:   &registry{},
	}
	c.runner.Start()
	return c, nil
}

// Start opens the event stream if the client is idle or disconnected
func (c *Client) Start() {
	epoch := c.currentEpoch()
	c.enqueue(func() {
		if c.sameEpoch(epoch) {
			c.connect()
		}
	})
}

// Subscribe adds topic to the subscription ledger. When the stream is open
// a subscribe frame is sent right away; otherwise the topic is sent once a
// connection opens, and an idle or disconnected client starts connecting
func (c *Client) Subscribe(topic api.Topic) {
	if topic == "" {
		return
	}
	epoch := c.currentEpoch()
	c.topics.add(topic)
	c.enqueue(func() {
		if !c.topics.contains(topic) {
			return
		}
		if c.currentPhase() != phaseOpen {
			if c.sameEpoch(epoch) {
				c.connect()
			}
			return
		}
		c.sendSubscribe(topic)
	})
}

// Unsubscribe removes topic from the ledger and, when the stream is open,
// tells the server. Unknown topics and closed streams are not errors
func (c *Client) Unsubscribe(topic api.Topic) {
	if !c.topics.remove(topic) {
		return
	}
	c.enqueue(func() {
		c.sendUnsubscribe(topic)
	})
}

// AddListener registers fn to receive every inbound message and returns a
// function that removes exactly that registration
func (c *Client) AddListener(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	return c.listeners.add(fn)
}

// Topics returns the subscription ledger in sorted order
func (c *Client) Topics() []api.Topic {
	return c.topics.list()
}

// IsConnected reports whether the stream is open
func (c *Client) IsConnected() bool {
	return c.currentPhase() == phaseOpen
}

// LastError returns the most recent transport error, or nil after a
// successful connection. Once reconnection gives up it wraps
// ErrReconnectExhausted
func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ConnectionState returns the raw readiness of the current connection
func (c *Client) ConnectionState() api.ConnectionState {
	switch c.currentPhase() {
	case phaseConnecting:
		return api.StateConnecting
	case phaseOpen:
		return api.StateOpen
	default:
		return api.StateClosed
	}
}

// ConnectionStatus returns the coarse status shown by status indicators
func (c *Client) ConnectionStatus() api.ConnectionStatus {
	switch c.currentPhase() {
	case phaseConnecting:
		return api.StatusConnecting
	case phaseOpen:
		return api.StatusConnected
	default:
		return api.StatusDisconnected
	}
}

// Reconnect restarts connection attempts after the client gave up or was
// disconnected, with a fresh failure count
func (c *Client) Reconnect() {
	epoch := c.currentEpoch()
	c.enqueue(func() {
		if !c.sameEpoch(epoch) {
			return
		}
		switch c.currentPhase() {
		case phaseExhausted, phaseDisconnected, phaseIdle:
			c.mu.Lock()
			c.failures = 0
			c.phase = phaseDisconnected
			c.mu.Unlock()
			c.connect()
		}
	})
}

// Disconnect closes the stream with a normal closure, clears the ledger and
// every listener, and cancels any pending reconnection. Start, Subscribe
// and Reconnect calls made before it and still queued do not reconnect. It
// is idempotent
func (c *Client) Disconnect() {
	c.topics.clear()
	c.listeners.clear()

	c.mu.Lock()
	c.gen++
	c.epoch++
	c.phase = phaseDisconnected
	c.failures = 0
	c.mu.Unlock()

	c.enqueue(c.teardown)
}

// Close disconnects and stops the client's event loop. It waits for every
// queued task, teardown included, and must not be called from a Listener
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.Disconnect()
		c.runner.Flush()
	})
}

func (c *Client) enqueue(fn Task) bool {
	return c.runner.Enqueue(fn)
}

func (c *Client) currentPhase() phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// epoch only moves on Disconnect, while gen also moves on every dial
func (c *Client) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

func (c *Client) sameEpoch(epoch uint64) bool {
	return c.currentEpoch() == epoch
}

func (c *Client) isCurrent(gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen == gen
}

func (c *Client) exhaustedError(cause error) error {
	return fmt.Errorf("%w (%d attempts): %w",
		ErrReconnectExhausted, c.maxAttempts, cause)
}

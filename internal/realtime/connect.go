package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

// connect starts a connection attempt when nothing is connected, connecting,
// or waiting to reconnect
func (c *Client) connect() {
	switch c.currentPhase() {
	case phaseIdle, phaseDisconnected:
		c.dial()
	}
}

func (c *Client) dial() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.phase = phaseConnecting
	attempt := c.failures + 1
	c.mu.Unlock()

	target, err := c.endpoint()
	if err != nil {
		c.handleFailure(gen, err)
		return
	}

	c.logger.Info("Connecting to event stream",
		log.Attempt(attempt),
		slog.Int("max_attempts", c.maxAttempts))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	go func() {
		defer cancel()
		conn, err := c.dialer.Dial(ctx, target)
		ok := c.enqueue(func() {
			if err != nil {
				c.handleFailure(gen, err)
				return
			}
			c.handleOpen(gen, conn)
		})
		if !ok && conn != nil {
			_ = conn.Close(CloseNormal, "client closed")
		}
	}()
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", err
	}
	if c.tokens == nil {
		return u.String(), nil
	}

	tkn, err := c.tokens.Token()
	if err != nil {
		c.logger.Warn("Connecting without credentials",
			log.Error(err))
		return u.String(), nil
	}
	if tkn != "" {
		q := u.Query()
		q.Set("token", tkn)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) handleOpen(gen uint64, conn Conn) {
	if !c.isCurrent(gen) {
		_ = conn.Close(CloseNormal, "connection superseded")
		return
	}

	c.cancelDial = nil
	c.conn = conn
	c.connID = uuid.NewString()
	c.sent = map[api.Topic]struct{}{}

	c.mu.Lock()
	c.phase = phaseOpen
	c.failures = 0
	c.lastErr = nil
	c.mu.Unlock()

	topics := c.topics.list()
	c.logger.Info("Event stream connected",
		log.ConnID(c.connID),
		slog.Int("topics", len(topics)))

	for _, t := range topics {
		c.sendSubscribe(t)
	}

	c.armLiveness(gen, conn)
	go c.readLoop(gen, conn)
}

func (c *Client) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.Receive()
		if err != nil {
			c.enqueue(func() {
				c.handleClosed(gen, conn, err)
			})
			return
		}
		if !c.enqueue(func() {
			c.dispatch(gen, conn, data)
		}) {
			return
		}
	}
}

func (c *Client) handleClosed(gen uint64, conn Conn, err error) {
	if !c.isCurrent(gen) || c.conn != conn {
		return
	}

	code := closeCode(err)
	c.releaseConn(code, "")

	if code == CloseNormal {
		c.mu.Lock()
		c.phase = phaseDisconnected
		c.mu.Unlock()
		c.logger.Info("Event stream closed normally",
			log.CloseCode(code))
		return
	}

	c.logger.Warn("Event stream lost",
		log.CloseCode(code),
		log.Error(err))
	c.handleFailure(gen, err)
}

// handleFailure records a failed attempt or lost connection and either
// schedules the next attempt or gives up
func (c *Client) handleFailure(gen uint64, err error) {
	if !c.isCurrent(gen) {
		return
	}
	c.cancelDial = nil

	c.mu.Lock()
	c.failures++
	failures := c.failures
	if failures >= c.maxAttempts {
		c.phase = phaseExhausted
		c.lastErr = c.exhaustedError(err)
		c.mu.Unlock()
		c.logger.Error("Max reconnection attempts reached",
			log.Attempt(failures),
			log.Error(err))
		return
	}
	c.phase = phaseWaiting
	c.lastErr = err
	c.mu.Unlock()

	delay := c.backoff.Delay(failures)
	c.logger.Info("Scheduling reconnect",
		log.Attempt(failures+1),
		slog.Duration("delay", delay),
		log.Error(err))

	stopTimer(c.retry)
	c.retry = c.afterFunc(delay, func() {
		c.enqueue(func() {
			c.handleRetry(gen)
		})
	})
}

func (c *Client) handleRetry(gen uint64) {
	if !c.isCurrent(gen) || c.currentPhase() != phaseWaiting {
		return
	}
	c.retry = nil
	c.dial()
}

func (c *Client) armLiveness(gen uint64, conn Conn) {
	stopTimer(c.ping)
	c.ping = c.afterFunc(c.liveness, func() {
		c.enqueue(func() {
			c.checkLiveness(gen, conn)
		})
	})
}

// checkLiveness pings the connection the client believes is open. A failed
// ping is handled like an abnormal closure
func (c *Client) checkLiveness(gen uint64, conn Conn) {
	if !c.isCurrent(gen) || c.conn != conn {
		return
	}
	if err := conn.Ping(); err != nil {
		c.logger.Warn("Liveness check failed, reconnecting",
			log.ConnID(c.connID),
			log.Error(err))
		c.releaseConn(CloseAbnormal, "liveness check failed")
		c.handleFailure(gen, err)
		return
	}
	c.armLiveness(gen, conn)
}

func (c *Client) dispatch(gen uint64, conn Conn, data []byte) {
	if !c.isCurrent(gen) || c.conn != conn {
		return
	}

	msg, err := parseMessage(data)
	if err != nil {
		c.logger.Warn("Dropping inbound frame",
			log.ConnID(c.connID),
			log.Error(err))
		return
	}

	for _, e := range c.listeners.snapshot() {
		if e.removed.Load() {
			continue
		}
		c.invoke(e.fn, msg)
	}
}

func (c *Client) invoke(fn Listener, msg api.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Listener panicked",
				log.MessageType(msg.Type),
				slog.Any("panic", r))
		}
	}()
	fn(msg)
}

func (c *Client) sendSubscribe(t api.Topic) {
	if c.conn == nil || !c.topics.contains(t) {
		return
	}
	if _, ok := c.sent[t]; ok {
		return
	}
	if c.send(api.SubscribeFrame(t)) {
		c.sent[t] = struct{}{}
	}
}

func (c *Client) sendUnsubscribe(t api.Topic) {
	if c.conn == nil || c.topics.contains(t) {
		return
	}
	if _, ok := c.sent[t]; !ok {
		return
	}
	delete(c.sent, t)
	c.send(api.UnsubscribeFrame(t))
}

func (c *Client) send(f api.Frame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		c.logger.Error("Failed to marshal frame",
			log.Topic(f.Payload.GateID),
			log.Error(err))
		return false
	}
	if err := c.conn.Send(data); err != nil {
		c.logger.Error("Failed to send frame",
			log.MessageType(f.Type),
			log.Topic(f.Payload.GateID),
			log.Error(err))
		return false
	}
	c.logger.Debug("Frame sent",
		log.MessageType(f.Type),
		log.Topic(f.Payload.GateID))
	return true
}

func (c *Client) releaseConn(code int, reason string) {
	stopTimer(c.ping)
	c.ping = nil
	if c.conn != nil {
		_ = c.conn.Close(code, reason)
	}
	c.conn = nil
	c.sent = nil
}

// teardown runs after Disconnect has invalidated the current generation
func (c *Client) teardown() {
	stopTimer(c.retry)
	c.retry = nil
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		c.logger.Info("Disconnecting from event stream",
			log.ConnID(c.connID))
	}
	c.releaseConn(CloseNormal, "client disconnecting")
}

func parseMessage(data []byte) (api.Message, error) {
	if !gjson.ValidBytes(data) {
		return api.Message{}, fmt.Errorf("%w: invalid JSON", ErrMalformedFrame)
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return api.Message{}, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}
	typ := res.Get("type")
	if typ.Type != gjson.String || typ.Str == "" {
		return api.Message{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	msg := api.Message{Type: api.MessageType(typ.Str)}
	if payload := res.Get("payload"); payload.Exists() {
		msg.Payload = json.RawMessage(payload.Raw)
	}
	return msg, nil
}

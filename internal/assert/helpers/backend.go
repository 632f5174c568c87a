package helpers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
	"github.com/MostafaGamal7/parking-realtime/pkg/log"
)

type (
	// Backend is an in-process stand-in for the parking backend. It serves
	// the master data and ticket endpoints and an event stream that records
	// every frame a client sends
	Backend struct {
		server  *httptest.Server
		gates   []api.Gate
		zones   map[string][]api.Zone
		tickets map[string]api.Ticket
		token   string
		conns   []*BackendConn
		mu      sync.Mutex
	}

	// BackendConn is one accepted event stream connection
	BackendConn struct {
		conn   *websocket.Conn
		URL    string
		frames []api.Frame
		closed bool
		mu     sync.Mutex
	}
)

const (
	apiPrefix = "/api/v1"
	writeWait = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// NewBackend starts a Backend that is shut down when the test ends
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		zones:   map[string][]api.Zone{},
		tickets: map[string]api.Ticket{},
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

// WebSocketURL returns the event stream endpoint
func (b *Backend) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + apiPrefix + "/ws"
}

// APIURL returns the REST base URL
func (b *Backend) APIURL() string {
	return b.server.URL + apiPrefix
}

// RequireToken makes every endpoint demand the given token
func (b *Backend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// AddGate registers a gate and the zones it serves
func (b *Backend) AddGate(g api.Gate, zones ...api.Zone) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gates = append(b.gates, g)
	b.zones[g.ID] = append(b.zones[g.ID], zones...)
}

// AddTicket registers a ticket
func (b *Backend) AddTicket(tk api.Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickets[tk.ID] = tk
}

// Conns returns every event stream connection accepted so far
func (b *Backend) Conns() []*BackendConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.conns)
}

// Conn returns the i-th accepted connection, or nil
func (b *Backend) Conn(i int) *BackendConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.conns) {
		return nil
	}
	return b.conns[i]
}

// Broadcast sends a message to every open connection
func (b *Backend) Broadcast(typ api.MessageType, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    typ,
		"payload": payload,
	})
	if err != nil {
		panic(err)
	}
	b.BroadcastRaw(data)
}

// BroadcastRaw sends data unchanged to every open connection
func (b *Backend) BroadcastRaw(data []byte) {
	for _, c := range b.Conns() {
		_ = c.Send(data)
	}
}

// DropAll ends every open connection with the given close code. Abnormal
// closure (1006) tears down the socket without a close frame
func (b *Backend) DropAll(code int) {
	for _, c := range b.Conns() {
		c.Drop(code)
	}
}

// Close drops every connection and stops the server
func (b *Backend) Close() {
	b.DropAll(websocket.CloseGoingAway)
	b.server.Close()
}

func (b *Backend) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(*gin.Context, *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	v1 := router.Group(apiPrefix)
	{
		v1.GET("/ws", b.handleWebSocket)
		v1.GET("/master/gates", b.authorized, b.listGates)
		v1.GET("/master/zones", b.authorized, b.listZones)
		v1.GET("/tickets/:ticketID", b.authorized, b.getTicket)
	}
	return router
}

func (b *Backend) requiredToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *Backend) authorized(c *gin.Context) {
	want := b.requiredToken()
	if want == "" {
		c.Next()
		return
	}
	got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if got != want {
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
			Status:  "error",
			Message: "Unauthorized",
		})
		return
	}
	c.Next()
}

func (b *Backend) listGates(c *gin.Context) {
	b.mu.Lock()
	gates := slices.Clone(b.gates)
	b.mu.Unlock()
	c.JSON(http.StatusOK, gates)
}

func (b *Backend) listZones(c *gin.Context) {
	gateID := c.Query("gateId")
	b.mu.Lock()
	zones, ok := b.zones[gateID]
	zones = slices.Clone(zones)
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Status:  "error",
			Message: "Gate not found",
		})
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (b *Backend) getTicket(c *gin.Context) {
	b.mu.Lock()
	tk, ok := b.tickets[c.Param("ticketID")]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Status:  "error",
			Message: "Ticket not found",
		})
		return
	}
	c.JSON(http.StatusOK, tk)
}

func (b *Backend) handleWebSocket(c *gin.Context) {
	if want := b.requiredToken(); want != "" && c.Query("token") != want {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	bc := &BackendConn{conn: conn, URL: c.Request.URL.String()}
	b.mu.Lock()
	b.conns = append(b.conns, bc)
	b.mu.Unlock()

	go bc.readFrames()
}

// Frames returns the frames received on this connection in order
func (c *BackendConn) Frames() []api.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.frames)
}

// Topics returns the topics of the received frames of the given type
func (c *BackendConn) Topics(typ api.MessageType) []api.Topic {
	var res []api.Topic
	for _, f := range c.Frames() {
		if f.Type == typ {
			res = append(res, f.Payload.GateID)
		}
	}
	return res
}

// Closed reports whether the connection has ended
func (c *BackendConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send writes a text frame to the client
func (c *BackendConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Drop ends the connection with the given close code
func (c *BackendConn) Drop(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if code != websocket.CloseAbnormalClosure {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(writeWait),
		)
	}
	_ = c.conn.Close()
}

func (c *BackendConn) readFrames() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			_ = c.conn.Close()
			return
		}

		var f api.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Warn("Ignoring malformed client frame",
				log.Error(err))
			continue
		}
		c.mu.Lock()
		c.frames = append(c.frames, f)
		c.mu.Unlock()
	}
}

package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8 * 1024
	sendBufferSize = 256
)

// Conn is the subset of *websocket.Conn a Client uses.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dispatch handles one inbound frame.
type Dispatch func(ctx context.Context, c *Client, env Envelope)

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	UserID string
	Email  string
	Type   string

	hub     *Hub
	conn    Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	log     *zap.Logger

	rooms map[string]struct{} // guarded by hub.mu
}

// Limits caps how fast a client may emit rate-limited frames.
type Limits struct {
	PerSecond rate.Limit
	Burst     int
}

// DefaultLimits allows bursts of 10 frames refilled at 5 per second.
var DefaultLimits = Limits{PerSecond: 5, Burst: 10}

// NewClient registers a connection with the hub.
func NewClient(h *Hub, conn Conn, userID, email, typ string, lim Limits, logger *zap.Logger) *Client {
	c := &Client{
		UserID:  userID,
		Email:   email,
		Type:    typ,
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(lim.PerSecond, lim.Burst),
		log:     logger,
		rooms:   make(map[string]struct{}),
	}
	h.register(c)
	return c
}

// Run starts the write pump and blocks in the read pump until the
// connection closes or ctx is cancelled.
func (c *Client) Run(ctx context.Context, dispatch Dispatch) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	go c.writePump()
	c.readPump(ctx, dispatch)
}

func (c *Client) readPump(ctx context.Context, dispatch Dispatch) {
	defer c.Close()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("socket read ended", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.Error("malformed frame", "")
			continue
		}
		dispatch(ctx, c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// enqueue queues b without blocking. It returns false when the buffer is
// full or the client is closed.
func (c *Client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Send queues a frame for this connection only.
func (c *Client) Send(event string, data any) bool {
	b, err := encode(event, data)
	if err != nil {
		c.log.Error("encode frame failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return c.enqueue(b)
}

// Error sends an error frame to this connection.
func (c *Client) Error(msg, ref string) {
	c.Send(EventError, ErrorData{Message: msg, Ref: ref})
}

// Allow consumes one token from the client's rate limiter.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close leaves every room and stops the pumps. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.done)
	})
}

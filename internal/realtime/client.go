package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one admitted WebSocket connection.
type Client struct {
	UserID string

	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	state atomic.Int32
}

// NewClient wraps conn for userID. It starts in ConnConnecting.
func NewClient(h *Hub, conn *websocket.Conn, userID string) *Client {
	c := &Client{
		UserID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.opts.SendBuffer),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(ConnConnecting))
	return c
}

// State reports the connection's lifecycle state.
func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

func (c *Client) setState(s ConnState) { c.state.Store(int32(s)) }

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the write pump, which then closes the socket. Safe to call
// more than once and from any goroutine.
func (c *Client) Close() {
	c.once.Do(func() {
		c.setState(ConnClosed)
		close(c.done)
	})
}

// Serve registers c on its hub, runs the write pump in the background and
// the read pump on the calling goroutine. It returns when the connection ends.
func (c *Client) Serve() error {
	if err := c.hub.Register(c); err != nil {
		c.Close()
		_ = c.conn.Close()
		return err
	}
	go c.writePump()
	c.readPump()
	return nil
}

// readPump discards inbound frames; it exists to process control frames
// (pong, close) and to notice a dead peer.
func (c *Client) readPump() {
	defer c.hub.Unregister(c)

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.log.Debug().Err(err).Str("user_id", c.UserID).Msg("ws read ended")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.hub.log.Debug().Err(err).Str("user_id", c.UserID).Msg("ws write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(opts.WriteTimeout))
			return
		}
	}
}

package channel

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"cafe-board-backend/config"
)

// WSClient is the WebSocket implementation of Channel. It owns the full
// connection lifecycle: dialing, the read pump, and reconnecting with capped
// backoff. Consumers only ever see On/Off/Emit/Connected.
type WSClient struct {
	url          string
	reconnect    time.Duration
	reconnectMax time.Duration

	reg       *registry
	connected atomic.Bool

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// NewWSClient creates a client for the given channel configuration. The
// connection is not opened until Run is called.
func NewWSClient(cfg *config.ChannelConfig) *WSClient {
	return &WSClient{
		url:          cfg.URL,
		reconnect:    cfg.Reconnect,
		reconnectMax: cfg.ReconnectMax,
		reg:          newRegistry(),
	}
}

// On registers h for the named event under key. Re-registering the same
// (event, key) replaces the handler; events are never delivered twice for
// one key.
func (c *WSClient) On(event, key string, h Handler) {
	c.reg.on(event, key, h)
}

// Off removes the handler registered under (event, key).
func (c *WSClient) Off(event, key string) {
	c.reg.off(event, key)
}

// Connected reports whether the socket is currently established.
func (c *WSClient) Connected() bool {
	return c.connected.Load()
}

// Emit sends an event to the backend. Emits are fire-and-forget: when the
// socket is down the frame is dropped silently, with no queueing and no
// error. Callers apply their local state change regardless.
func (c *WSClient) Emit(event string, payload any) {
	if !c.connected.Load() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to marshal %s payload: %v", event, err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		logger.Errorf("Failed to marshal %s envelope: %v", event, err)
		return
	}

	c.writeMu.Lock()
	conn := c.conn
	if conn != nil {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Warningf("Dropping %s emit, write failed: %v", event, err)
		}
	}
	c.writeMu.Unlock()
}

// Run dials the backend and pumps inbound events into the subscriber
// registry until ctx is cancelled. Dial failures and dropped connections
// trigger reconnection with doubling backoff, capped at reconnect_max.
func (c *WSClient) Run(ctx context.Context) {
	backoff := c.reconnect
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			logger.Warningf("Channel dial failed: %v (retrying in %v)", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.reconnectMax {
				backoff = c.reconnectMax
			}
			continue
		}

		logger.Infof("Channel connected to %s", c.url)
		backoff = c.reconnect
		c.setConn(conn)

		c.readPump(ctx, conn)

		c.clearConn(conn)
		if ctx.Err() != nil {
			return
		}
		logger.Warning("Channel disconnected, reconnecting...")
	}
}

func (c *WSClient) setConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
	c.connected.Store(true)
}

func (c *WSClient) clearConn(conn *websocket.Conn) {
	c.connected.Store(false)
	c.writeMu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.writeMu.Unlock()
	conn.Close()
}

// readPump reads frames until the connection drops or ctx is cancelled.
func (c *WSClient) readPump(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warningf("Discarding malformed channel frame: %v", err)
			continue
		}
		if env.Event == "" {
			continue
		}
		c.reg.dispatch(env.Event, env.Data)
	}
}

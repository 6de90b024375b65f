// internal/ws/client.go
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection for an authenticated identity.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	outbox     chan []byte
	identityID int64
	logger     *zap.Logger

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, identityID int64, logger *zap.Logger) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		outbox:     make(chan []byte, 64),
		identityID: identityID,
		logger:     logger,
	}
}

// Start registers the client with the hub and launches the pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// send queues a payload without blocking; a slow consumer loses events rather
// than stalling the hub.
func (c *Client) send(payload []byte) {
	select {
	case c.outbox <- payload:
	default:
		c.logger.Warn("ws client outbox full, dropping event",
			zap.Int64("identity_id", c.identityID),
		)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.outbox)
	})
}

// readPump discards inbound frames (the hub is push-only) and keeps the pong
// deadline fresh until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("ws read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lobbyworks/presencehub/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping interval; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size
	maxMessageSize = 16 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one live websocket connection. The read pump is the only writer
// of playerID and displayName, so dispatch code may read them without
// additional locking.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	connID      model.ConnectionID
	connectedAt time.Time
	logger      *slog.Logger

	// set once the connection identifies
	playerID    model.PlayerID
	displayName string
}

func newClient(hub *Hub, conn *websocket.Conn, connID model.ConnectionID, logger *slog.Logger) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connID:      connID,
		connectedAt: time.Now(),
		logger:      logger.With(slog.String("connection_id", string(connID))),
	}
}

// Send queues a message for this client without blocking. Returns false when
// the client's buffer is full and the message was dropped.
func (c *Client) Send(message []byte) bool {
	defer func() {
		// The hub closes c.send on unregister; a racing Send must not panic
		_ = recover()
	}()
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeWithPolicy sends a close frame with the given policy code and reason,
// then tears the connection down. Used for the connection-cap rejection so
// the client learns why it was dropped.
func (c *Client) closeWithPolicy(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.logger.Debug("close frame write failed", slog.Any("error", err))
	}
	_ = c.conn.Close()
}

// readPump reads messages from the connection and hands them to the handler.
// It owns all reads; when it returns the connection is torn down exactly once.
func (c *Client) readPump(h *Handler) {
	defer h.handleDisconnect(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", slog.Any("error", err))
			}
			return
		}
		h.handleMessage(c, payload)
	}
}

// writePump writes queued messages and keepalive pings to the connection.
// It owns all writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

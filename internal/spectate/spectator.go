package spectate

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Spectators only send control frames; anything larger is a misbehaving peer
	maxMessageSize = 512
)

type spectator struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *log.Logger
}

func newSpectator(conn *websocket.Conn, logger *log.Logger) *spectator {
	id := uuid.NewString()
	return &spectator{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger.With("spectator", id),
	}
}

// readPump drains the connection so pongs and close frames are processed.
// Data messages are discarded.
func (c *spectator) readPump(unregister chan<- *spectator, done <-chan struct{}) {
	defer func() {
		select {
		case unregister <- c:
		case <-done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("Unexpected websocket close", "error", err)
			}
			return
		}
	}
}

// writePump is the only writer on the connection. It exits when the hub
// closes send.
func (c *spectator) writePump() {
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

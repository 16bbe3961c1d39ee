package signaling

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meshcall/meshcall/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP payloads fit comfortably.
	maxMessageSize = 64 * 1024
)

// Client wraps a single participant's websocket connection.
type Client struct {
	// ID is the server-assigned participant identifier, unique per
	// connection.
	ID string

	// Hub manages this client.
	Hub *Hub

	// Conn is the websocket connection.
	Conn *websocket.Conn

	// Send buffers outbound messages; the write pump drains it.
	Send chan *protocol.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// Runs in a per-connection goroutine; all reads happen here so there is at
// most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("read error", "id", c.ID, "err", err)
			}
			break
		}

		c.Hub.inbound <- envelope{msg: &msg, client: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// Runs in a per-connection goroutine; all writes happen here so there is at
// most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Warn("write error", "id", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

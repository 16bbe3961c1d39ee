package sigclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meshcall/meshcall/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *protocol.Message
	outgoing  chan *protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a signaling client for the given server URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *protocol.Message, 32),
		outgoing:  make(chan *protocol.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
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
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// SendMessage queues a message for the server.
func (c *Client) SendMessage(msg *protocol.Message) {
	select {
	case c.outgoing <- msg:
	case <-c.done:
	}
}

// Incoming returns the channel of messages from the server. It is closed
// when the connection drops.
func (c *Client) Incoming() <-chan *protocol.Message {
	return c.incoming
}

// JoinRoom asks the server to add us to a room.
func (c *Client) JoinRoom(roomID string) {
	c.SendMessage(&protocol.Message{Event: protocol.EventJoinRoom, Room: roomID})
}

// LeaveRoom asks the server to remove us from a room.
func (c *Client) LeaveRoom(roomID string) {
	c.SendMessage(&protocol.Message{Event: protocol.EventLeaveRoom, Room: roomID})
}

// SendOffer relays an offer signal to the target participant.
func (c *Client) SendOffer(targetID, callerID string, signal json.RawMessage) error {
	return c.sendPayload(protocol.EventSendOffer, protocol.SignalForward{
		UserToSignal: targetID,
		CallerID:     callerID,
		Signal:       signal,
	})
}

// SendAnswer relays an answer signal back to the participant whose offer is
// being answered.
func (c *Client) SendAnswer(callerID string, signal json.RawMessage) error {
	return c.sendPayload(protocol.EventSendAnswer, protocol.AnswerForward{
		CallerID: callerID,
		Signal:   signal,
	})
}

// SendCandidate relays a connectivity candidate to the target participant.
func (c *Client) SendCandidate(targetID, callerID string, signal json.RawMessage) error {
	return c.sendPayload(protocol.EventSendCandidate, protocol.SignalForward{
		UserToSignal: targetID,
		CallerID:     callerID,
		Signal:       signal,
	})
}

func (c *Client) sendPayload(event string, payload any) error {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		return err
	}
	c.SendMessage(msg)
	return nil
}

// Close shuts down the connection. Safe to call more than once, from any
// goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

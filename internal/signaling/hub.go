package signaling

import (
	"log/slog"

	"github.com/meshcall/meshcall/internal/protocol"
)

// envelope pairs a wire message with the connection it arrived on. The
// client pointer is attached by the read pump and never serialized.
type envelope struct {
	msg    *protocol.Message
	client *Client
}

// Hub is the signaling server's brain: it tracks live connections, drives
// room membership through the registry, and relays addressed signals. All
// state is owned by the single goroutine running Run, so join/leave and
// relay handling never interleave destructively.
type Hub struct {
	registry *Registry
	clients  map[string]*Client

	// Register is the channel for newly upgraded connections.
	Register chan *Client

	// Unregister is the channel for closed connections.
	Unregister chan *Client

	inbound chan envelope
}

// NewHub creates a hub around the given registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan envelope),
	}
}

// Run processes registration, disconnects and inbound messages. It must run
// in its own goroutine for the lifetime of the server.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client.ID] = client
			slog.Info("client connected", "id", client.ID)
			h.send(client, protocol.EventConnected, protocol.ConnectedPayload{ID: client.ID})

		case client := <-h.Unregister:
			if _, ok := h.clients[client.ID]; !ok {
				continue
			}
			delete(h.clients, client.ID)
			for _, roomID := range h.registry.DisconnectAll(client.ID) {
				h.notifyUserLeft(roomID, client.ID)
			}
			close(client.Send)
			slog.Info("client disconnected", "id", client.ID)

		case env := <-h.inbound:
			h.dispatch(env.client, env.msg)
		}
	}
}

func (h *Hub) dispatch(client *Client, msg *protocol.Message) {
	switch msg.Event {
	case protocol.EventJoinRoom:
		h.handleJoin(client, msg.Room)

	case protocol.EventLeaveRoom:
		h.handleLeave(client, msg.Room)

	case protocol.EventSendOffer:
		h.relaySignal(client, msg, protocol.EventOfferReceived)

	case protocol.EventSendAnswer:
		h.relayAnswer(client, msg)

	case protocol.EventSendCandidate:
		h.relaySignal(client, msg, protocol.EventCandidateReceived)

	default:
		slog.Debug("unknown event", "event", msg.Event, "id", client.ID)
	}
}

func (h *Hub) handleJoin(client *Client, roomID string) {
	if roomID == "" {
		slog.Warn("join without room", "id", client.ID)
		return
	}

	snapshot, vacated := h.registry.Join(roomID, client.ID)
	slog.Info("joined room", "id", client.ID, "room", roomID, "present", len(snapshot))

	// A join that moved the participant is a leave for their old room.
	for _, oldRoom := range vacated {
		h.notifyUserLeft(oldRoom, client.ID)
	}

	// Snapshot to the joiner only, user-joined to everyone else.
	h.send(client, protocol.EventAllUsers, snapshot)
	for _, memberID := range snapshot {
		if member, ok := h.clients[memberID]; ok {
			h.send(member, protocol.EventUserJoined, client.ID)
		}
	}
}

func (h *Hub) handleLeave(client *Client, roomID string) {
	if h.registry.Leave(roomID, client.ID) {
		slog.Info("left room", "id", client.ID, "room", roomID)
		h.notifyUserLeft(roomID, client.ID)
	}
}

func (h *Hub) notifyUserLeft(roomID, participantID string) {
	for _, memberID := range h.registry.Members(roomID) {
		if member, ok := h.clients[memberID]; ok {
			h.send(member, protocol.EventUserLeft, participantID)
		}
	}
}

// relaySignal forwards send-offer / send-candidate payloads to the
// addressed participant. The signal itself is never inspected. A target
// that is not connected means the message is dropped.
func (h *Hub) relaySignal(client *Client, msg *protocol.Message, deliverEvent string) {
	var fwd protocol.SignalForward
	if err := msg.Decode(&fwd); err != nil {
		slog.Warn("malformed signal payload", "event", msg.Event, "id", client.ID, "err", err)
		return
	}
	h.relay(fwd.UserToSignal, deliverEvent, protocol.SignalDelivery{
		CallerID: fwd.CallerID,
		Signal:   fwd.Signal,
	})
}

func (h *Hub) relayAnswer(client *Client, msg *protocol.Message) {
	var fwd protocol.AnswerForward
	if err := msg.Decode(&fwd); err != nil {
		slog.Warn("malformed answer payload", "id", client.ID, "err", err)
		return
	}
	h.relay(fwd.CallerID, protocol.EventAnswerReceived, protocol.AnswerDelivery{
		ID:     client.ID,
		Signal: fwd.Signal,
	})
}

func (h *Hub) relay(targetID, event string, payload any) {
	target, ok := h.clients[targetID]
	if !ok {
		slog.Debug("relay target not connected", "target", targetID, "event", event)
		return
	}
	h.send(target, event, payload)
}

func (h *Hub) send(client *Client, event string, payload any) {
	msg, err := protocol.NewMessage(event, payload)
	if err != nil {
		slog.Error("encode message", "event", event, "err", err)
		return
	}
	select {
	case client.Send <- msg:
	default:
		slog.Warn("send buffer full, dropping", "id", client.ID, "event", event)
	}
}

package sigclient

import (
	"log/slog"
	"sync"

	"github.com/meshcall/meshcall/internal/protocol"
)

// Handler routes incoming signaling messages to typed channels. The
// channels are closed when the connection drops, so consumers ranging over
// them terminate on their own.
type Handler struct {
	client *Client

	Connected  chan string
	AllUsers   chan []string
	UserJoined chan string
	UserLeft   chan string
	Offer      chan *protocol.SignalDelivery
	Answer     chan *protocol.AnswerDelivery
	Candidate  chan *protocol.SignalDelivery

	closeOnce sync.Once
}

// NewHandler creates a message handler over the given client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Connected:  make(chan string, 1),
		AllUsers:   make(chan []string, 1),
		UserJoined: make(chan string, 8),
		UserLeft:   make(chan string, 8),
		Offer:      make(chan *protocol.SignalDelivery, 32),
		Answer:     make(chan *protocol.AnswerDelivery, 32),
		Candidate:  make(chan *protocol.SignalDelivery, 64),
	}
}

// Start listens to incoming messages and routes them until the connection
// closes, then closes the typed channels. Run it in its own goroutine.
func (h *Handler) Start() {
	defer h.Close()

	for msg := range h.client.Incoming() {
		switch msg.Event {

		case protocol.EventConnected:
			var p protocol.ConnectedPayload
			if err := msg.Decode(&p); err != nil {
				slog.Warn("bad connected payload", "err", err)
				continue
			}
			h.Connected <- p.ID

		case protocol.EventAllUsers:
			var users []string
			if err := msg.Decode(&users); err != nil {
				slog.Warn("bad all-users payload", "err", err)
				continue
			}
			h.AllUsers <- users

		case protocol.EventUserJoined:
			h.forwardID(msg, h.UserJoined)

		case protocol.EventUserLeft:
			h.forwardID(msg, h.UserLeft)

		case protocol.EventOfferReceived:
			h.forwardSignal(msg, h.Offer)

		case protocol.EventAnswerReceived:
			var p protocol.AnswerDelivery
			if err := msg.Decode(&p); err != nil {
				slog.Warn("bad answer payload", "err", err)
				continue
			}
			h.Answer <- &p

		case protocol.EventCandidateReceived:
			h.forwardSignal(msg, h.Candidate)

		default:
			slog.Debug("unhandled event", "event", msg.Event)
		}
	}
}

func (h *Handler) forwardID(msg *protocol.Message, ch chan string) {
	var id string
	if err := msg.Decode(&id); err != nil {
		slog.Warn("bad participant payload", "event", msg.Event, "err", err)
		return
	}
	ch <- id
}

func (h *Handler) forwardSignal(msg *protocol.Message, ch chan *protocol.SignalDelivery) {
	var p protocol.SignalDelivery
	if err := msg.Decode(&p); err != nil {
		slog.Warn("bad signal payload", "event", msg.Event, "err", err)
		return
	}
	ch <- &p
}

// Close closes all handler channels. Safe to call more than once; Start
// calls it when the connection drops.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		close(h.Connected)
		close(h.AllUsers)
		close(h.UserJoined)
		close(h.UserLeft)
		close(h.Offer)
		close(h.Answer)
		close(h.Candidate)
	})
}

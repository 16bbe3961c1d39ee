package protocol

import "encoding/json"

// Message is the envelope for all signaling traffic, in both directions.
// The payload shape depends on the event; Signal fields are opaque to the
// server and forwarded without interpretation.
type Message struct {
	Event   string          `json:"event"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server events.
const (
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventSendOffer     = "send-offer"
	EventSendAnswer    = "send-answer"
	EventSendCandidate = "send-candidate"
)

// Server to client events.
const (
	EventConnected         = "connected"
	EventAllUsers          = "all-users"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventOfferReceived     = "offer-received"
	EventAnswerReceived    = "answer-received"
	EventCandidateReceived = "candidate-received"
)

// ConnectedPayload announces the server-assigned participant ID.
type ConnectedPayload struct {
	ID string `json:"id"`
}

// SignalForward is the payload of send-offer and send-candidate: an opaque
// signal addressed to another participant.
type SignalForward struct {
	UserToSignal string          `json:"userToSignal"`
	CallerID     string          `json:"callerID"`
	Signal       json.RawMessage `json:"signal"`
}

// SignalDelivery is the payload of offer-received and candidate-received.
type SignalDelivery struct {
	CallerID string          `json:"callerID"`
	Signal   json.RawMessage `json:"signal"`
}

// AnswerForward is the payload of send-answer; CallerID names the
// participant whose offer is being answered.
type AnswerForward struct {
	CallerID string          `json:"callerID"`
	Signal   json.RawMessage `json:"signal"`
}

// AnswerDelivery is the payload of answer-received; ID is the answering
// participant, filled in by the server.
type AnswerDelivery struct {
	ID     string          `json:"id"`
	Signal json.RawMessage `json:"signal"`
}

// NewMessage builds a Message with a JSON-encoded payload.
func NewMessage(event string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Event: event}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Event: event, Payload: b}, nil
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

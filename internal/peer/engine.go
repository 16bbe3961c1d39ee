package peer

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Engine is the slice of the external negotiation engine the state machine
// drives. *webrtc.PeerConnection satisfies it directly.
type Engine interface {
	CreateOffer(options *webrtc.OfferOptions) (webrtc.SessionDescription, error)
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	Close() error
}

// TrackEngine is the sender-manipulation slice used by track replacement.
// *webrtc.PeerConnection satisfies it directly.
type TrackEngine interface {
	GetSenders() []*webrtc.RTPSender
	RemoveTrack(sender *webrtc.RTPSender) error
	AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error)
}

// Relay sends addressed signaling messages on behalf of a session. Signals
// are pre-encoded; the relay forwards them untouched.
type Relay interface {
	SendOffer(targetID, callerID string, signal json.RawMessage) error
	SendAnswer(callerID string, signal json.RawMessage) error
	SendCandidate(targetID, callerID string, signal json.RawMessage) error
}

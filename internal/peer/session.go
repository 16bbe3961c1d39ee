package peer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// State is the negotiation state of a peer session.
type State int

const (
	StateIdle State = iota
	StateOfferCreated
	StateOfferSent
	StateOfferReceived
	StateAnswerCreated
	StateAnswerSent
	StateConnected
	StateRenegotiating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferCreated:
		return "offer-created"
	case StateOfferSent:
		return "offer-sent"
	case StateOfferReceived:
		return "offer-received"
	case StateAnswerCreated:
		return "answer-created"
	case StateAnswerSent:
		return "answer-sent"
	case StateConnected:
		return "connected"
	case StateRenegotiating:
		return "renegotiating"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Role distinguishes which side created the session.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// Session is the per-remote-participant negotiation state machine. All
// transitions are serialized by its mutex; sessions are independent of one
// another. Negotiation failures are logged and leave the state unchanged —
// the corrective action is a full hangup and re-call.
type Session struct {
	localID  string
	remoteID string
	role     Role
	engine   Engine
	relay    Relay
	tracks   TrackEngine

	mu            sync.Mutex
	state         State
	remoteDescSet bool
	pending       []webrtc.ICECandidateInit
	paused        map[webrtc.RTPCodecType]pausedSender
}

// pausedSender remembers the sender a track was swapped out of, so resuming
// can swap the same track back in. After ReplaceTrack(nil) the sender no
// longer reports its kind.
type pausedSender struct {
	sender *webrtc.RTPSender
	track  webrtc.TrackLocal
}

// NewSession creates a session in Idle.
func NewSession(localID, remoteID string, role Role, engine Engine, relay Relay) *Session {
	return &Session{
		localID:  localID,
		remoteID: remoteID,
		role:     role,
		engine:   engine,
		relay:    relay,
		state:    StateIdle,
	}
}

// SetTrackEngine wires the sender-manipulation interface used for track
// replacement. Optional; sessions without it report ErrSwapUnsupported.
func (s *Session) SetTrackEngine(t TrackEngine) {
	s.mu.Lock()
	s.tracks = t
	s.mu.Unlock()
}

// RemoteID returns the remote participant this session negotiates with.
func (s *Session) RemoteID() string { return s.remoteID }

// Role returns whether this side initiated the session.
func (s *Session) Role() Role { return s.role }

// State returns the current negotiation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartOffer drives the initiator path: create the offer, apply it locally,
// relay it to the remote.
func (s *Session) StartOffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}
	return s.offerLocked()
}

func (s *Session) offerLocked() error {
	offer, err := s.engine.CreateOffer(nil)
	if err != nil {
		return s.failLocked("create offer", err)
	}
	if err := s.engine.SetLocalDescription(offer); err != nil {
		return s.failLocked("set local description", err)
	}
	if s.state != StateRenegotiating {
		s.state = StateOfferCreated
	}

	signal, err := json.Marshal(offer)
	if err != nil {
		return s.failLocked("encode offer", err)
	}
	if err := s.relay.SendOffer(s.remoteID, s.localID, signal); err != nil {
		return s.failLocked("relay offer", err)
	}
	if s.state != StateRenegotiating {
		s.state = StateOfferSent
	}
	return nil
}

// HandleOffer runs the responder path for an incoming offer. When the
// session is already Connected this is a renegotiation: the existing
// session is reused and returns to Connected once the answer is relayed.
func (s *Session) HandleOffer(signal json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	renegotiating := s.state == StateConnected
	if renegotiating {
		s.state = StateRenegotiating
	}

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(signal, &offer); err != nil {
		return s.failLocked("decode offer", err)
	}
	if err := s.engine.SetRemoteDescription(offer); err != nil {
		return s.failLocked("set remote description", err)
	}
	s.remoteDescSet = true
	if !renegotiating {
		s.state = StateOfferReceived
	}
	s.flushCandidatesLocked()

	answer, err := s.engine.CreateAnswer(nil)
	if err != nil {
		return s.failLocked("create answer", err)
	}
	if err := s.engine.SetLocalDescription(answer); err != nil {
		return s.failLocked("set local description", err)
	}
	if !renegotiating {
		s.state = StateAnswerCreated
	}

	encoded, err := json.Marshal(answer)
	if err != nil {
		return s.failLocked("encode answer", err)
	}
	if err := s.relay.SendAnswer(s.remoteID, encoded); err != nil {
		return s.failLocked("relay answer", err)
	}

	if renegotiating {
		s.state = StateConnected
	} else {
		s.state = StateAnswerSent
	}
	return nil
}

// HandleAnswer applies the remote answer on the initiator side and flushes
// queued candidates.
func (s *Session) HandleAnswer(signal json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	var answer webrtc.SessionDescription
	if err := json.Unmarshal(signal, &answer); err != nil {
		return s.failLocked("decode answer", err)
	}
	if err := s.engine.SetRemoteDescription(answer); err != nil {
		return s.failLocked("set remote description", err)
	}
	s.remoteDescSet = true
	s.flushCandidatesLocked()

	// A renegotiation completes once the answer is applied.
	if s.state == StateRenegotiating {
		s.state = StateConnected
	}
	return nil
}

// HandleCandidate applies a remote connectivity candidate. Candidates that
// arrive before the remote description are queued and flushed in arrival
// order once the description is set; applying early fails in the engine.
func (s *Session) HandleCandidate(signal json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(signal, &candidate); err != nil {
		return s.failLocked("decode candidate", err)
	}

	if !s.remoteDescSet {
		s.pending = append(s.pending, candidate)
		return nil
	}
	if err := s.engine.AddICECandidate(candidate); err != nil {
		return s.failLocked("add candidate", err)
	}
	return nil
}

func (s *Session) flushCandidatesLocked() {
	for _, candidate := range s.pending {
		if err := s.engine.AddICECandidate(candidate); err != nil {
			slog.Warn("apply queued candidate", "remote", s.remoteID, "err", err)
		}
	}
	s.pending = nil
}

// MarkConnected records that the engine observed an established connection.
// The state machine never computes this itself.
func (s *Session) MarkConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateConnected
}

// Renegotiate re-runs the initiator path from Connected, used after the
// outgoing sender set changed.
func (s *Session) Renegotiate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateConnected:
	default:
		return ErrNotConnected
	}

	s.state = StateRenegotiating
	// The remote side answers the new offer; candidates may trickle again.
	s.remoteDescSet = false
	return s.offerLocked()
}

// ReplaceVideoTrack swaps the outgoing video sender's track in place, with
// no SDP exchange. Returns ErrSwapUnsupported when no swappable video
// sender exists.
func (s *Session) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	s.mu.Lock()
	sender := s.senderLocked(webrtc.RTPCodecTypeVideo)
	s.mu.Unlock()

	if sender == nil {
		return ErrSwapUnsupported
	}
	if err := sender.ReplaceTrack(track); err != nil {
		return fmt.Errorf("replace track: %w", err)
	}
	return nil
}

// RenegotiateVideoTrack is the fallback path: remove the old video sender,
// add the new track, and drive a fresh offer through the initiator path.
func (s *Session) RenegotiateVideoTrack(track webrtc.TrackLocal) error {
	s.mu.Lock()
	if s.tracks == nil {
		s.mu.Unlock()
		return ErrSwapUnsupported
	}
	if sender := s.senderLocked(webrtc.RTPCodecTypeVideo); sender != nil {
		if err := s.tracks.RemoveTrack(sender); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("remove track: %w", err)
		}
	}
	if _, err := s.tracks.AddTrack(track); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("add track: %w", err)
	}
	s.mu.Unlock()

	return s.Renegotiate()
}

func (s *Session) senderLocked(kind webrtc.RTPCodecType) *webrtc.RTPSender {
	if s.tracks == nil {
		return nil
	}
	for _, sender := range s.tracks.GetSenders() {
		track := sender.Track()
		if track != nil && track.Kind() == kind {
			return sender
		}
	}
	return nil
}

// SetOutgoingEnabled pauses or resumes the outgoing sender of the given
// kind. Pausing swaps the sender's track out in place; resuming swaps the
// remembered track back in. No SDP exchange either way. Returns
// ErrSwapUnsupported when no sender of that kind exists.
func (s *Session) SetOutgoingEnabled(kind webrtc.RTPCodecType, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrSessionClosed
	}

	if enabled {
		p, ok := s.paused[kind]
		if !ok {
			return nil
		}
		if err := p.sender.ReplaceTrack(p.track); err != nil {
			return fmt.Errorf("resume track: %w", err)
		}
		delete(s.paused, kind)
		return nil
	}

	if _, ok := s.paused[kind]; ok {
		return nil
	}
	sender := s.senderLocked(kind)
	if sender == nil {
		return ErrSwapUnsupported
	}
	track := sender.Track()
	if err := sender.ReplaceTrack(nil); err != nil {
		return fmt.Errorf("pause track: %w", err)
	}
	if s.paused == nil {
		s.paused = make(map[webrtc.RTPCodecType]pausedSender)
	}
	s.paused[kind] = pausedSender{sender: sender, track: track}
	return nil
}

// Close tears the session down. Idempotent: closing a closed session is a
// no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.pending = nil
	s.paused = nil
	if err := s.engine.Close(); err != nil {
		slog.Warn("close engine", "remote", s.remoteID, "err", err)
	}
	return nil
}

func (s *Session) failLocked(op string, err error) error {
	slog.Error("negotiation failed", "remote", s.remoteID, "op", op, "state", s.state.String(), "err", err)
	return fmt.Errorf("%s: %w", op, err)
}

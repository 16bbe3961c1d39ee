package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// SessionFactory builds a session for a newly discovered remote, wiring
// whatever engine the deployment uses.
type SessionFactory func(remoteID string, role Role) (*Session, error)

// Manager owns the mesh of peer sessions, one per remote participant.
// N participants means N-1 simultaneous sessions on each client.
type Manager struct {
	factory SessionFactory

	mu       sync.Mutex
	localID  string
	sessions map[string]*Session
}

// NewManager creates an empty session mesh.
func NewManager(factory SessionFactory) *Manager {
	return &Manager{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// SetLocalID records the server-assigned participant ID.
func (m *Manager) SetLocalID(id string) {
	m.mu.Lock()
	m.localID = id
	m.mu.Unlock()
}

// LocalID returns the server-assigned participant ID.
func (m *Manager) LocalID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localID
}

// Session returns the session for a remote, or nil.
func (m *Manager) Session(remoteID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[remoteID]
}

// Sessions returns all live sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// HandleAllUsers initiates a session toward every participant already in
// the room. One failing remote does not stop the others.
func (m *Manager) HandleAllUsers(users []string) {
	for _, remoteID := range users {
		session, err := m.obtain(remoteID, RoleInitiator)
		if err != nil {
			slog.Error("create initiator session", "remote", remoteID, "err", err)
			continue
		}
		if err := session.StartOffer(); err != nil {
			slog.Error("start offer", "remote", remoteID, "err", err)
		}
	}
}

// HandleOffer dispatches a relayed offer. An existing session for the
// caller is reused — required so mid-call renegotiation does not orphan the
// original session — otherwise a responder session is created.
func (m *Manager) HandleOffer(callerID string, signal json.RawMessage) error {
	session, err := m.obtain(callerID, RoleResponder)
	if err != nil {
		return err
	}
	return session.HandleOffer(signal)
}

// HandleAnswer dispatches a relayed answer to the matching session.
func (m *Manager) HandleAnswer(id string, signal json.RawMessage) error {
	session := m.Session(id)
	if session == nil {
		return fmt.Errorf("no session for %s", id)
	}
	return session.HandleAnswer(signal)
}

// HandleCandidate dispatches a relayed connectivity candidate.
func (m *Manager) HandleCandidate(callerID string, signal json.RawMessage) error {
	session := m.Session(callerID)
	if session == nil {
		return fmt.Errorf("no session for %s", callerID)
	}
	return session.HandleCandidate(signal)
}

// SetAudioEnabled pauses or resumes the outgoing audio sender on every
// session. Sessions without an audio sender are skipped.
func (m *Manager) SetAudioEnabled(enabled bool) {
	m.setOutgoingEnabled(webrtc.RTPCodecTypeAudio, enabled)
}

// SetVideoEnabled pauses or resumes the outgoing video sender on every
// session. Sessions without a video sender are skipped.
func (m *Manager) SetVideoEnabled(enabled bool) {
	m.setOutgoingEnabled(webrtc.RTPCodecTypeVideo, enabled)
}

func (m *Manager) setOutgoingEnabled(kind webrtc.RTPCodecType, enabled bool) {
	for _, session := range m.Sessions() {
		err := session.SetOutgoingEnabled(kind, enabled)
		if err != nil && !errors.Is(err, ErrSwapUnsupported) {
			slog.Warn("toggle sender", "remote", session.RemoteID(), "kind", kind.String(), "err", err)
		}
	}
}

// HandleUserLeft closes and forgets the session for a departed remote.
func (m *Manager) HandleUserLeft(remoteID string) {
	m.mu.Lock()
	session := m.sessions[remoteID]
	delete(m.sessions, remoteID)
	m.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// CloseAll synchronously closes every session. Nothing is left half-closed
// when it returns.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) obtain(remoteID string, role Role) (*Session, error) {
	m.mu.Lock()
	if session, ok := m.sessions[remoteID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	// The factory may block (engine construction); build outside the lock.
	session, err := m.factory(remoteID, role)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[remoteID]; ok {
		session.Close()
		return existing, nil
	}
	m.sessions[remoteID] = session
	return session, nil
}

// Package track coordinates replacing the outgoing video track across all
// active peer sessions, for screen sharing and its teardown.
package track

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/meshcall/meshcall/internal/peer"
)

// ErrShareActive is returned when a replacement is started while one is
// already active. At most one replacement track per local user.
var ErrShareActive = errors.New("track replacement already active")

// Port is what the coordinator needs from one peer session.
type Port interface {
	RemoteID() string
	ReplaceVideoTrack(track webrtc.TrackLocal) error
	RenegotiateVideoTrack(track webrtc.TrackLocal) error
}

// Mode records how a session received the replacement track.
type Mode int

const (
	// ModeSwapped means the sender's track was swapped in place, no SDP
	// exchange.
	ModeSwapped Mode = iota

	// ModeRenegotiated means the session went through the fallback:
	// sender removed, track added, fresh offer.
	ModeRenegotiated
)

// Coordinator applies a replacement track to every session, preferring the
// in-place swap and falling back to renegotiation per session. It records
// which sessions were touched so the original track can be restored the
// same way.
type Coordinator struct {
	mu      sync.Mutex
	active  bool
	applied map[string]Mode
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{applied: make(map[string]Mode)}
}

// Active reports whether a replacement is in effect.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start swaps the replacement track into every session's outgoing video
// sender. Sessions that fail are logged and skipped; the share proceeds for
// the rest.
func (c *Coordinator) Start(sessions []Port, replacement webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrShareActive
	}

	for _, session := range sessions {
		mode, err := apply(session, replacement)
		if err != nil {
			slog.Error("apply replacement track", "remote", session.RemoteID(), "err", err)
			continue
		}
		c.applied[session.RemoteID()] = mode
	}
	c.active = true
	return nil
}

// Stop restores the original track on every session the replacement
// reached, following the same two-path logic.
func (c *Coordinator) Stop(sessions []Port, original webrtc.TrackLocal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}

	for _, session := range sessions {
		if _, ok := c.applied[session.RemoteID()]; !ok {
			continue
		}
		if _, err := apply(session, original); err != nil {
			slog.Error("restore track", "remote", session.RemoteID(), "err", err)
		}
	}
	c.applied = make(map[string]Mode)
	c.active = false
	return nil
}

// Applied returns how the named session received the track, if it did.
func (c *Coordinator) Applied(remoteID string) (Mode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mode, ok := c.applied[remoteID]
	return mode, ok
}

func apply(session Port, t webrtc.TrackLocal) (Mode, error) {
	err := session.ReplaceVideoTrack(t)
	if err == nil {
		return ModeSwapped, nil
	}
	if !errors.Is(err, peer.ErrSwapUnsupported) {
		return 0, err
	}
	if err := session.RenegotiateVideoTrack(t); err != nil {
		return 0, err
	}
	return ModeRenegotiated, nil
}

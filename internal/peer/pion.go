package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/meshcall/meshcall/internal/config"
)

// NewPeerConnection builds a pion peer connection from the configured ICE
// servers.
func NewPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if cfg.ForceRelay {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// Bind wires pion callbacks into the session: gathered local candidates go
// out through the relay, and engine-reported connection state changes drive
// the Connected transition. The session itself never computes connectivity.
// onConnected, if non-nil, runs after the transition.
func (s *Session) Bind(pc *webrtc.PeerConnection, onConnected func()) {
	s.SetTrackEngine(pc)

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		signal, err := json.Marshal(c.ToJSON())
		if err != nil {
			slog.Warn("encode candidate", "remote", s.remoteID, "err", err)
			return
		}
		if err := s.relay.SendCandidate(s.remoteID, s.localID, signal); err != nil {
			slog.Warn("relay candidate", "remote", s.remoteID, "err", err)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("connection state", "remote", s.remoteID, "state", state.String())
		if state == webrtc.PeerConnectionStateConnected {
			s.MarkConnected()
			if onConnected != nil {
				onConnected()
			}
		}
	})
}

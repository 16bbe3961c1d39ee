// Package call wires the signaling connection, the peer session mesh and
// the data channel protocol into one client-side call lifecycle.
package call

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/meshcall/meshcall/internal/config"
	"github.com/meshcall/meshcall/internal/peer"
	"github.com/meshcall/meshcall/internal/sigclient"
	"github.com/meshcall/meshcall/internal/track"
	"github.com/meshcall/meshcall/internal/transfer"
)

const connectTimeout = 30 * time.Second

// ErrNoServerID is returned when the server never announces our ID.
var ErrNoServerID = errors.New("no participant ID from server")

// Events are the user-facing notifications of a call. Nil callbacks are
// skipped.
type Events struct {
	OnChat          func(label, text string)
	OnSystem        func(text string)
	OnFileStart     func(remoteID, name string, size int64)
	OnFileProgress  func(remoteID string, received, total int64)
	OnFileSaved     func(remoteID, path string)
	OnPeerConnected func(remoteID string)
	OnPeerLeft      func(remoteID string)
}

// Call is one client's participation in a room: signaling, the mesh of
// peer sessions, open data channels, and the screen share coordinator.
type Call struct {
	cfg    *config.Config
	events Events

	sig     *sigclient.Client
	handler *sigclient.Handler
	peers   *peer.Manager
	coord   *track.Coordinator

	mu       sync.Mutex
	channels map[string]*webrtc.DataChannel
	room     string

	done     chan struct{}
	hangOnce sync.Once
}

// New creates a call bound to the configured signaling server.
func New(cfg *config.Config, events Events) *Call {
	sig := sigclient.NewClient(cfg.WebSocketURL)
	c := &Call{
		cfg:      cfg,
		events:   events,
		sig:      sig,
		handler:  sigclient.NewHandler(sig),
		coord:    track.NewCoordinator(),
		channels: make(map[string]*webrtc.DataChannel),
		done:     make(chan struct{}),
	}
	c.peers = peer.NewManager(c.newSession)
	return c
}

// Connect dials the signaling server and waits for the server-assigned
// participant ID, then starts dispatching relayed messages.
func (c *Call) Connect() error {
	if err := c.sig.Connect(); err != nil {
		return err
	}
	go c.handler.Start()

	select {
	case id := <-c.handler.Connected:
		c.peers.SetLocalID(id)
	case <-time.After(connectTimeout):
		c.sig.Close()
		return ErrNoServerID
	}

	go c.loop()
	return nil
}

// LocalID returns the server-assigned participant ID.
func (c *Call) LocalID() string { return c.peers.LocalID() }

// Join enters a room. Sessions toward existing members are initiated when
// the membership snapshot arrives.
func (c *Call) Join(roomID string) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
	c.sig.JoinRoom(roomID)
}

// loop dispatches relayed signaling events onto the session mesh.
func (c *Call) loop() {
	for {
		select {
		case <-c.done:
			return

		case users, ok := <-c.handler.AllUsers:
			if !ok {
				return
			}
			c.peers.HandleAllUsers(users)

		case id, ok := <-c.handler.UserJoined:
			if !ok {
				return
			}
			c.system(fmt.Sprintf("%s joined the room", id))

		case id, ok := <-c.handler.UserLeft:
			if !ok {
				return
			}
			c.dropPeer(id)

		case offer, ok := <-c.handler.Offer:
			if !ok {
				return
			}
			if err := c.peers.HandleOffer(offer.CallerID, offer.Signal); err != nil {
				slog.Error("handle offer", "remote", offer.CallerID, "err", err)
			}

		case answer, ok := <-c.handler.Answer:
			if !ok {
				return
			}
			if err := c.peers.HandleAnswer(answer.ID, answer.Signal); err != nil {
				slog.Error("handle answer", "remote", answer.ID, "err", err)
			}

		case candidate, ok := <-c.handler.Candidate:
			if !ok {
				return
			}
			if err := c.peers.HandleCandidate(candidate.CallerID, candidate.Signal); err != nil {
				slog.Debug("dropped candidate", "remote", candidate.CallerID, "err", err)
			}
		}
	}
}

// newSession is the peer.SessionFactory: it builds the engine, wires the
// data channel and hands back the state machine.
func (c *Call) newSession(remoteID string, role peer.Role) (*peer.Session, error) {
	pc, err := peer.NewPeerConnection(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	session := peer.NewSession(c.peers.LocalID(), remoteID, role, pc, c.sig)
	session.Bind(pc, func() {
		if c.events.OnPeerConnected != nil {
			c.events.OnPeerConnected(remoteID)
		}
	})

	if role == peer.RoleInitiator {
		dc, err := pc.CreateDataChannel("chat", nil)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create data channel: %w", err)
		}
		c.wireChannel(remoteID, dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == "chat" {
				c.wireChannel(remoteID, dc)
			}
		})
	}

	return session, nil
}

// wireChannel attaches the data channel protocol to one channel.
func (c *Call) wireChannel(remoteID string, dc *webrtc.DataChannel) {
	receiver := transfer.NewReceiver(transfer.Handlers{
		OnChat: func(msg transfer.ChatMessage) {
			if c.events.OnChat != nil {
				c.events.OnChat(msg.SenderLabel, msg.Text)
			}
		},
		OnFileStart: func(name string, size int64) {
			if c.events.OnFileStart != nil {
				c.events.OnFileStart(remoteID, name, size)
			}
		},
		OnFileProgress: func(received, total int64) {
			if c.events.OnFileProgress != nil {
				c.events.OnFileProgress(remoteID, received, total)
			}
		},
		OnFile: func(file transfer.ReceivedFile) {
			path, err := Save(file, c.cfg.OutputDir)
			if err != nil {
				slog.Error("save received file", "name", file.Name, "err", err)
				c.system(fmt.Sprintf("failed to save %s: %v", file.Name, err))
				return
			}
			if c.events.OnFileSaved != nil {
				c.events.OnFileSaved(remoteID, path)
			}
		},
		OnError: func(err error) {
			c.system(err.Error())
		},
	})

	dc.OnOpen(func() {
		c.mu.Lock()
		c.channels[remoteID] = dc
		c.mu.Unlock()
		c.system(fmt.Sprintf("chat connected with %s", remoteID))
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			receiver.HandleText(msg.Data)
		} else {
			receiver.HandleBinary(msg.Data)
		}
	})

	dc.OnClose(func() {
		c.mu.Lock()
		delete(c.channels, remoteID)
		c.mu.Unlock()
		c.system(fmt.Sprintf("chat disconnected from %s", remoteID))
	})
}

// dropPeer tears down everything tied to a departed remote.
func (c *Call) dropPeer(remoteID string) {
	c.mu.Lock()
	delete(c.channels, remoteID)
	c.mu.Unlock()

	c.peers.HandleUserLeft(remoteID)
	if c.events.OnPeerLeft != nil {
		c.events.OnPeerLeft(remoteID)
	}
}

// SenderLabel is the label attached to outbound chat.
func (c *Call) SenderLabel() string {
	if c.cfg.Label != "" {
		return c.cfg.Label
	}
	return transfer.DeviceLabel()
}

// SendChat broadcasts a chat message to every open channel.
func (c *Call) SendChat(text string) error {
	channels := c.openChannels()
	if len(channels) == 0 {
		return transfer.ErrChannelNotOpen
	}

	label := c.SenderLabel()
	for remoteID, dc := range channels {
		if err := transfer.SendChat(dc, text, label); err != nil {
			slog.Warn("send chat", "remote", remoteID, "err", err)
		}
	}
	return nil
}

// SendFile streams a file to every open channel in turn.
func (c *Call) SendFile(path string, progress func(remoteID string, sent, total int64)) error {
	channels := c.openChannels()
	if len(channels) == 0 {
		return transfer.ErrChannelNotOpen
	}

	for remoteID, dc := range channels {
		var cb transfer.Progress
		if progress != nil {
			id := remoteID
			cb = func(sent, total int64) { progress(id, sent, total) }
		}
		if err := transfer.SendFileFromPath(dc, path, cb); err != nil {
			return err
		}
	}
	return nil
}

// Peers returns the remote IDs with live sessions and their states.
func (c *Call) Peers() (ids []string, states map[string]string) {
	states = make(map[string]string)
	for _, session := range c.peers.Sessions() {
		ids = append(ids, session.RemoteID())
		states[session.RemoteID()] = session.State().String()
	}
	return ids, states
}

// SetAudioEnabled pauses or resumes outgoing audio on every session.
func (c *Call) SetAudioEnabled(enabled bool) { c.peers.SetAudioEnabled(enabled) }

// SetVideoEnabled pauses or resumes outgoing video on every session.
func (c *Call) SetVideoEnabled(enabled bool) { c.peers.SetVideoEnabled(enabled) }

// StartShare swaps the replacement track into every connected session.
func (c *Call) StartShare(replacement webrtc.TrackLocal) error {
	return c.coord.Start(c.connectedPorts(), replacement)
}

// StopShare restores the original track on every session the share reached.
func (c *Call) StopShare(original webrtc.TrackLocal) error {
	return c.coord.Stop(c.connectedPorts(), original)
}

func (c *Call) connectedPorts() []track.Port {
	var ports []track.Port
	for _, session := range c.peers.Sessions() {
		if session.State() == peer.StateConnected {
			ports = append(ports, session)
		}
	}
	return ports
}

// HangUp leaves the room and synchronously closes every session, channel
// and buffer. Safe to call more than once.
func (c *Call) HangUp() {
	c.hangOnce.Do(func() {
		c.mu.Lock()
		room := c.room
		c.room = ""
		c.channels = make(map[string]*webrtc.DataChannel)
		c.mu.Unlock()

		if room != "" {
			c.sig.LeaveRoom(room)
		}

		// Sessions close before we report disconnected; nothing is left
		// half-closed.
		c.peers.CloseAll()

		close(c.done)
		c.sig.Close()
		c.system("disconnected")
	})
}

func (c *Call) openChannels() map[string]*webrtc.DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()

	open := make(map[string]*webrtc.DataChannel, len(c.channels))
	for id, dc := range c.channels {
		if dc.ReadyState() == webrtc.DataChannelStateOpen {
			open[id] = dc
		}
	}
	return open
}

func (c *Call) system(text string) {
	if c.events.OnSystem != nil {
		c.events.OnSystem(text)
	}
}

package signaling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshcall/meshcall/internal/protocol"
)

// newTestHub starts a hub whose clients are bare structs with buffered Send
// channels; no websocket connections are involved.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(NewRegistry())
	go h.Run()
	return h
}

func addClient(t *testing.T, h *Hub, id string) *Client {
	t.Helper()
	c := &Client{ID: id, Send: make(chan *protocol.Message, 16)}
	h.Register <- c

	msg := recvMessage(t, c)
	require.Equal(t, protocol.EventConnected, msg.Event)

	var connected protocol.ConnectedPayload
	require.NoError(t, msg.Decode(&connected))
	require.Equal(t, id, connected.ID)
	return c
}

func recvMessage(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.ID)
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected %s for %s", msg.Event, c.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func join(h *Hub, c *Client, room string) {
	h.inbound <- envelope{msg: &protocol.Message{Event: protocol.EventJoinRoom, Room: room}, client: c}
}

func TestJoinDeliversSnapshotToJoinerOnly(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	join(h, a, "r1")
	msg := recvMessage(t, a)
	require.Equal(t, protocol.EventAllUsers, msg.Event)
	var users []string
	require.NoError(t, msg.Decode(&users))
	assert.Empty(t, users)

	join(h, b, "r1")

	// The joiner gets the snapshot, the existing member gets user-joined.
	msg = recvMessage(t, b)
	require.Equal(t, protocol.EventAllUsers, msg.Event)
	require.NoError(t, msg.Decode(&users))
	assert.Equal(t, []string{"a"}, users)

	msg = recvMessage(t, a)
	require.Equal(t, protocol.EventUserJoined, msg.Event)
	var joined string
	require.NoError(t, msg.Decode(&joined))
	assert.Equal(t, "b", joined)
}

func TestOfferRelayInjectsNothing(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	signal := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	payload, err := protocol.NewMessage(protocol.EventSendOffer, protocol.SignalForward{
		UserToSignal: "b",
		CallerID:     "a",
		Signal:       signal,
	})
	require.NoError(t, err)
	h.inbound <- envelope{msg: payload, client: a}

	msg := recvMessage(t, b)
	require.Equal(t, protocol.EventOfferReceived, msg.Event)

	var delivery protocol.SignalDelivery
	require.NoError(t, msg.Decode(&delivery))
	assert.Equal(t, "a", delivery.CallerID)
	assert.JSONEq(t, string(signal), string(delivery.Signal))
}

func TestAnswerRelayStampsSenderID(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	signal := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	payload, err := protocol.NewMessage(protocol.EventSendAnswer, protocol.AnswerForward{
		CallerID: "a",
		Signal:   signal,
	})
	require.NoError(t, err)
	h.inbound <- envelope{msg: payload, client: b}

	msg := recvMessage(t, a)
	require.Equal(t, protocol.EventAnswerReceived, msg.Event)

	// The answering participant's identity comes from the connection, not
	// from anything the client put in the payload.
	var delivery protocol.AnswerDelivery
	require.NoError(t, msg.Decode(&delivery))
	assert.Equal(t, "b", delivery.ID)
	assert.JSONEq(t, string(signal), string(delivery.Signal))
}

func TestRelayToOfflineTargetIsDropped(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")

	payload, err := protocol.NewMessage(protocol.EventSendCandidate, protocol.SignalForward{
		UserToSignal: "ghost",
		CallerID:     "a",
		Signal:       json.RawMessage(`{"candidate":""}`),
	})
	require.NoError(t, err)
	h.inbound <- envelope{msg: payload, client: a}

	// No error comes back to the sender either.
	assertNoMessage(t, a)
}

func TestDisconnectNotifiesRemainingMembers(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	join(h, a, "r1")
	recvMessage(t, a) // all-users
	join(h, b, "r1")
	recvMessage(t, b) // all-users
	recvMessage(t, a) // user-joined

	h.Unregister <- b

	msg := recvMessage(t, a)
	require.Equal(t, protocol.EventUserLeft, msg.Event)
	var left string
	require.NoError(t, msg.Decode(&left))
	assert.Equal(t, "b", left)
}

func TestMovingRoomsNotifiesOldRoomMembers(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	join(h, a, "r1")
	recvMessage(t, a) // all-users
	join(h, b, "r1")
	recvMessage(t, b) // all-users
	recvMessage(t, a) // user-joined

	// Joining another room without leaving first still tells the old
	// room's members to tear down their sessions.
	join(h, b, "r2")

	msg := recvMessage(t, a)
	require.Equal(t, protocol.EventUserLeft, msg.Event)
	var left string
	require.NoError(t, msg.Decode(&left))
	assert.Equal(t, "b", left)

	msg = recvMessage(t, b)
	assert.Equal(t, protocol.EventAllUsers, msg.Event)
}

func TestExplicitLeaveNotifiesRemainingMembers(t *testing.T) {
	h := newTestHub(t)
	a := addClient(t, h, "a")
	b := addClient(t, h, "b")

	join(h, a, "r1")
	recvMessage(t, a)
	join(h, b, "r1")
	recvMessage(t, b)
	recvMessage(t, a)

	h.inbound <- envelope{msg: &protocol.Message{Event: protocol.EventLeaveRoom, Room: "r1"}, client: b}

	msg := recvMessage(t, a)
	require.Equal(t, protocol.EventUserLeft, msg.Event)

	// The leaver stays connected and can join another room.
	join(h, b, "r2")
	msg = recvMessage(t, b)
	assert.Equal(t, protocol.EventAllUsers, msg.Event)
}

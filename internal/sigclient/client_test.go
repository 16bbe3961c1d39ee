package sigclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshcall/meshcall/internal/server"
	"github.com/meshcall/meshcall/internal/signaling"
)

// startServer runs a real signaling server and returns its ws:// URL.
func startServer(t *testing.T) string {
	t.Helper()

	hub := signaling.NewHub(signaling.NewRegistry())
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.ServeWs(hub))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// connect dials the server and waits for the assigned participant ID.
func connect(t *testing.T, url string) (*Client, *Handler, string) {
	t.Helper()

	client := NewClient(url)
	handler := NewHandler(client)
	require.NoError(t, client.Connect())
	t.Cleanup(client.Close)
	go handler.Start()

	select {
	case id := <-handler.Connected:
		require.NotEmpty(t, id)
		return client, handler, id
	case <-time.After(2 * time.Second):
		t.Fatal("no connected event")
		return nil, nil, ""
	}
}

func TestTwoClientsNegotiateThroughServer(t *testing.T) {
	url := startServer(t)

	a, aHandler, aID := connect(t, url)
	b, bHandler, bID := connect(t, url)

	a.JoinRoom("room")
	select {
	case users := <-aHandler.AllUsers:
		assert.Empty(t, users, "first joiner sees an empty room")
	case <-time.After(2 * time.Second):
		t.Fatal("no all-users for a")
	}

	b.JoinRoom("room")
	select {
	case users := <-bHandler.AllUsers:
		assert.Equal(t, []string{aID}, users)
	case <-time.After(2 * time.Second):
		t.Fatal("no all-users for b")
	}
	select {
	case joined := <-aHandler.UserJoined:
		assert.Equal(t, bID, joined)
	case <-time.After(2 * time.Second):
		t.Fatal("no user-joined for a")
	}

	// b initiates toward a; the offer arrives untouched, the answer comes
	// back stamped with a's identity.
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	require.NoError(t, b.SendOffer(aID, bID, offer))
	select {
	case delivery := <-aHandler.Offer:
		assert.Equal(t, bID, delivery.CallerID)
		assert.JSONEq(t, string(offer), string(delivery.Signal))
	case <-time.After(2 * time.Second):
		t.Fatal("no offer for a")
	}

	answer := json.RawMessage(`{"type":"answer","sdp":"v=0"}`)
	require.NoError(t, a.SendAnswer(bID, answer))
	select {
	case delivery := <-bHandler.Answer:
		assert.Equal(t, aID, delivery.ID)
		assert.JSONEq(t, string(answer), string(delivery.Signal))
	case <-time.After(2 * time.Second):
		t.Fatal("no answer for b")
	}

	require.NoError(t, b.SendCandidate(aID, bID, json.RawMessage(`{"candidate":"c1"}`)))
	select {
	case delivery := <-aHandler.Candidate:
		assert.Equal(t, bID, delivery.CallerID)
	case <-time.After(2 * time.Second):
		t.Fatal("no candidate for a")
	}
}

func TestDisconnectReachesRoomMembers(t *testing.T) {
	url := startServer(t)

	a, aHandler, _ := connect(t, url)
	b, bHandler, bID := connect(t, url)

	a.JoinRoom("room")
	<-aHandler.AllUsers
	b.JoinRoom("room")
	<-bHandler.AllUsers
	<-aHandler.UserJoined

	b.Close()

	select {
	case left := <-aHandler.UserLeft:
		assert.Equal(t, bID, left)
	case <-time.After(2 * time.Second):
		t.Fatal("no user-left for a")
	}
}

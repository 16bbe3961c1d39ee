package peer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMesh wires a manager whose factory hands out sessions backed by
// per-remote fake engines and a shared fake relay.
type testMesh struct {
	manager *Manager
	relay   *fakeRelay
	engines map[string]*fakeEngine
	built   []string
}

func newTestMesh() *testMesh {
	m := &testMesh{
		relay:   &fakeRelay{},
		engines: make(map[string]*fakeEngine),
	}
	m.manager = NewManager(func(remoteID string, role Role) (*Session, error) {
		engine := &fakeEngine{}
		m.engines[remoteID] = engine
		m.built = append(m.built, remoteID)
		return NewSession("local", remoteID, role, engine, m.relay), nil
	})
	m.manager.SetLocalID("local")
	return m
}

func TestAllUsersStartsOneOfferPerRemote(t *testing.T) {
	m := newTestMesh()

	m.manager.HandleAllUsers([]string{"b", "c"})

	assert.Equal(t, []string{"b", "c"}, m.built)
	require.Len(t, m.relay.offers, 2)
	assert.Equal(t, "b", m.relay.offers[0].target)
	assert.Equal(t, "c", m.relay.offers[1].target)

	require.NotNil(t, m.manager.Session("b"))
	assert.Equal(t, RoleInitiator, m.manager.Session("b").Role())
}

func TestOfferCreatesResponderSessionOnce(t *testing.T) {
	m := newTestMesh()

	require.NoError(t, m.manager.HandleOffer("a", offerSignal(t)))
	require.NoError(t, m.manager.HandleOffer("a", offerSignal(t)))

	assert.Equal(t, []string{"a"}, m.built, "second offer reuses the session")
	assert.Equal(t, RoleResponder, m.manager.Session("a").Role())
	assert.Len(t, m.engines["a"].remoteDescs, 2)
}

func TestAnswerForUnknownRemoteFails(t *testing.T) {
	m := newTestMesh()

	assert.Error(t, m.manager.HandleAnswer("ghost", answerSignal(t)))
	assert.Error(t, m.manager.HandleCandidate("ghost", candidateSignal(t, "c")))
}

func TestUserLeftClosesAndForgets(t *testing.T) {
	m := newTestMesh()
	m.manager.HandleAllUsers([]string{"b"})

	m.manager.HandleUserLeft("b")

	assert.Nil(t, m.manager.Session("b"))
	assert.Equal(t, 1, m.engines["b"].closed)

	// Unknown remotes are a no-op.
	m.manager.HandleUserLeft("ghost")
}

func TestCloseAllClosesEverySession(t *testing.T) {
	m := newTestMesh()
	m.manager.HandleAllUsers([]string{"b", "c"})

	m.manager.CloseAll()

	assert.Empty(t, m.manager.Sessions())
	assert.Equal(t, 1, m.engines["b"].closed)
	assert.Equal(t, 1, m.engines["c"].closed)
}

func TestFactoryFailureSkipsRemote(t *testing.T) {
	var calls int
	manager := NewManager(func(remoteID string, role Role) (*Session, error) {
		calls++
		return nil, errors.New("no engine")
	})

	manager.HandleAllUsers([]string{"b", "c"})

	assert.Equal(t, 2, calls, "one failing remote does not stop the others")
	assert.Empty(t, manager.Sessions())

	assert.Error(t, manager.HandleOffer("b", offerSignal(t)))
}

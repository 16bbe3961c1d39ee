package track

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshcall/meshcall/internal/peer"
)

// fakePort records which replacement path was taken.
type fakePort struct {
	id             string
	replaceErr     error
	renegotiateErr error

	replaced     []webrtc.TrackLocal
	renegotiated []webrtc.TrackLocal
}

func (p *fakePort) RemoteID() string { return p.id }

func (p *fakePort) ReplaceVideoTrack(t webrtc.TrackLocal) error {
	if p.replaceErr != nil {
		return p.replaceErr
	}
	p.replaced = append(p.replaced, t)
	return nil
}

func (p *fakePort) RenegotiateVideoTrack(t webrtc.TrackLocal) error {
	if p.renegotiateErr != nil {
		return p.renegotiateErr
	}
	p.renegotiated = append(p.renegotiated, t)
	return nil
}

func TestStartPrefersInPlaceSwap(t *testing.T) {
	c := NewCoordinator()
	p := &fakePort{id: "b"}

	require.NoError(t, c.Start([]Port{p}, nil))

	assert.Len(t, p.replaced, 1)
	assert.Empty(t, p.renegotiated)

	mode, ok := c.Applied("b")
	require.True(t, ok)
	assert.Equal(t, ModeSwapped, mode)
	assert.True(t, c.Active())
}

func TestStartFallsBackToRenegotiation(t *testing.T) {
	c := NewCoordinator()
	p := &fakePort{id: "b", replaceErr: peer.ErrSwapUnsupported}

	require.NoError(t, c.Start([]Port{p}, nil))

	assert.Len(t, p.renegotiated, 1)

	mode, ok := c.Applied("b")
	require.True(t, ok)
	assert.Equal(t, ModeRenegotiated, mode)
}

func TestStartSkipsFailingSessions(t *testing.T) {
	c := NewCoordinator()
	broken := &fakePort{id: "b", replaceErr: errors.New("sender gone")}
	healthy := &fakePort{id: "c"}

	require.NoError(t, c.Start([]Port{broken, healthy}, nil))

	_, ok := c.Applied("b")
	assert.False(t, ok, "failed session is not recorded")
	_, ok = c.Applied("c")
	assert.True(t, ok)
	assert.True(t, c.Active())
}

func TestSecondStartIsRejected(t *testing.T) {
	c := NewCoordinator()
	p := &fakePort{id: "b"}

	require.NoError(t, c.Start([]Port{p}, nil))
	assert.ErrorIs(t, c.Start([]Port{p}, nil), ErrShareActive)
	assert.Len(t, p.replaced, 1, "rejected start touches nothing")
}

func TestStopRestoresOnlyTouchedSessions(t *testing.T) {
	c := NewCoordinator()
	touched := &fakePort{id: "b"}
	require.NoError(t, c.Start([]Port{touched}, nil))

	// A session that joined after the share started was never touched and
	// must not be restored.
	late := &fakePort{id: "c"}
	require.NoError(t, c.Stop([]Port{touched, late}, nil))

	assert.Len(t, touched.replaced, 2, "swap in, swap back")
	assert.Empty(t, late.replaced)
	assert.False(t, c.Active())

	_, ok := c.Applied("b")
	assert.False(t, ok, "stop clears the record")
}

func TestStopWithoutActiveShareIsNoOp(t *testing.T) {
	c := NewCoordinator()
	p := &fakePort{id: "b"}

	require.NoError(t, c.Stop([]Port{p}, nil))
	assert.Empty(t, p.replaced)
}

func TestStartAfterStopWorks(t *testing.T) {
	c := NewCoordinator()
	p := &fakePort{id: "b"}

	require.NoError(t, c.Start([]Port{p}, nil))
	require.NoError(t, c.Stop([]Port{p}, nil))
	require.NoError(t, c.Start([]Port{p}, nil))
	assert.True(t, c.Active())
}

package peer

import "errors"

var (
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrNotConnected is returned when renegotiation is requested before
	// the session reached Connected.
	ErrNotConnected = errors.New("session not connected")

	// ErrSwapUnsupported is returned when the engine has no video sender
	// that can be swapped in place.
	ErrSwapUnsupported = errors.New("in-place track swap unsupported")
)

package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotOpen is returned when a send is attempted on a channel
	// that is not open.
	ErrChannelNotOpen = errors.New("data channel not open")

	// ErrTransferInFlight is reported when a file-meta arrives while a
	// previous inbound transfer is still buffering.
	ErrTransferInFlight = errors.New("inbound transfer already in flight")

	// ErrBufferTimeout is returned when the send buffer never drains.
	ErrBufferTimeout = errors.New("buffer drain timeout")
)

// TransferError carries the failing operation and file for display.
type TransferError struct {
	Op   string
	File string
	Err  error
}

func (e *TransferError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// NewError wraps err with the failing operation.
func NewError(op string, err error) *TransferError {
	return &TransferError{Op: op, Err: err}
}

// NewFileError wraps err with the failing operation and file name.
func NewFileError(op, file string, err error) *TransferError {
	return &TransferError{Op: op, File: file, Err: err}
}

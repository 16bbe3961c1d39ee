package transfer

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// ChunkSize is the fixed size of a binary file chunk. Chunk boundaries are
// channel-message boundaries; no length header is embedded.
const ChunkSize = 16384

// Waterline thresholds for the optional send-window gating.
const (
	highWaterMark = 2 * 1024 * 1024
	lowWaterMark  = 512 * 1024
	drainTimeout  = 30 * time.Second
)

// Channel is the outbound surface of a data channel. *webrtc.DataChannel
// satisfies it.
type Channel interface {
	Send(data []byte) error
	SendText(text string) error
}

// BufferedChannel is optionally implemented by channels that expose their
// send buffer; SendFile gates on it to avoid overrunning a slow receiver.
// *webrtc.DataChannel satisfies it.
type BufferedChannel interface {
	Channel
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
}

// Progress reports transferred versus total bytes after each chunk.
type Progress func(transferred, total int64)

// SendChat sends one chat envelope with the sender's label.
func SendChat(ch Channel, text, senderLabel string) error {
	frame, err := Envelope{Kind: KindChat, Text: text, SenderLabel: senderLabel}.Encode()
	if err != nil {
		return NewError("encode chat", err)
	}
	if err := ch.SendText(string(frame)); err != nil {
		return NewError("send chat", err)
	}
	return nil
}

// SendFile streams a file: one file-meta envelope, the content as ordered
// fixed-size binary chunks, then one file-end envelope repeating the
// metadata as a defense against metadata loss.
func SendFile(ch Channel, name, mimeType string, r io.Reader, size int64, progress Progress) error {
	meta := Envelope{Kind: KindFileMeta, Name: name, Size: size, MimeType: mimeType}
	if err := sendEnvelope(ch, meta); err != nil {
		return NewFileError("send metadata", name, err)
	}

	gate := newSendGate(ch)

	buf := make([]byte, ChunkSize)
	var sent int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := gate.wait(); err != nil {
				return NewFileError("send chunk", name, err)
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := ch.Send(chunk); err != nil {
				return NewFileError("send chunk", name, err)
			}
			sent += int64(n)
			if progress != nil {
				progress(sent, size)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// The receiver is left with an unfinished buffer and no end
			// signal; it never finalizes. Known gap.
			return NewFileError("read file", name, readErr)
		}
	}

	end := Envelope{Kind: KindFileEnd, Name: name, Size: size, MimeType: mimeType}
	if err := sendEnvelope(ch, end); err != nil {
		return NewFileError("send end", name, err)
	}
	return nil
}

// SendFileFromPath opens the file and streams it with its detected MIME
// type.
func SendFileFromPath(ch Channel, path string, progress Progress) error {
	f, err := os.Open(path)
	if err != nil {
		return NewFileError("open file", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return NewFileError("stat file", path, err)
	}

	return SendFile(ch, info.Name(), DetectMimeType(info.Name()), f, info.Size(), progress)
}

func sendEnvelope(ch Channel, e Envelope) error {
	frame, err := e.Encode()
	if err != nil {
		return err
	}
	return ch.SendText(string(frame))
}

// sendGate applies the waterline discipline when the channel exposes its
// buffer; otherwise waits are no-ops.
type sendGate struct {
	buffered BufferedChannel
	low      chan struct{}
}

func newSendGate(ch Channel) *sendGate {
	buffered, ok := ch.(BufferedChannel)
	if !ok {
		return &sendGate{}
	}

	g := &sendGate{buffered: buffered, low: make(chan struct{}, 1)}
	buffered.SetBufferedAmountLowThreshold(lowWaterMark)
	buffered.OnBufferedAmountLow(func() {
		select {
		case g.low <- struct{}{}:
		default:
		}
	})
	return g
}

func (g *sendGate) wait() error {
	if g.buffered == nil || g.buffered.BufferedAmount() < highWaterMark {
		return nil
	}
	select {
	case <-g.low:
		return nil
	case <-time.After(drainTimeout):
		return ErrBufferTimeout
	}
}

// DeviceLabel is the best-effort sender label attached to outbound chat.
func DeviceLabel() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return runtime.GOOS
	}
	return fmt.Sprintf("%s (%s)", host, runtime.GOOS)
}

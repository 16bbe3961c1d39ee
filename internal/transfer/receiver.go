package transfer

import (
	"log/slog"
	"mime"
	"path/filepath"
	"sync"
)

const fallbackMimeType = "application/octet-stream"

// ChatMessage is a decoded inbound chat envelope.
type ChatMessage struct {
	Text        string
	SenderLabel string
}

// ReceivedFile is a fully reassembled inbound transfer.
type ReceivedFile struct {
	Name         string
	MimeType     string
	DeclaredSize int64
	Data         []byte
}

// Handlers receives decoded protocol events. Nil callbacks are skipped.
type Handlers struct {
	OnChat         func(ChatMessage)
	OnFileStart    func(name string, size int64)
	OnFileProgress func(received, total int64)
	OnFile         func(ReceivedFile)
	OnError        func(error)
}

// fileBuffer accumulates the single in-flight inbound transfer of one
// channel. No multiplexing: one transfer at a time.
type fileBuffer struct {
	meta     Envelope
	chunks   [][]byte
	received int64
	active   bool
}

// Receiver decodes inbound data channel frames for one channel: text
// frames through the envelope schema, binary frames into the file buffer.
type Receiver struct {
	mu       sync.Mutex
	buf      fileBuffer
	handlers Handlers
}

// NewReceiver creates a receiver dispatching to the given handlers.
func NewReceiver(handlers Handlers) *Receiver {
	return &Receiver{handlers: handlers}
}

// HandleText processes one text frame.
func (r *Receiver) HandleText(data []byte) {
	env := DecodeEnvelope(data)

	switch env.Kind {
	case KindChat:
		label := env.SenderLabel
		if label == "" {
			label = "Remote"
		}
		if r.handlers.OnChat != nil {
			r.handlers.OnChat(ChatMessage{Text: env.Text, SenderLabel: label})
		}

	case KindFileMeta:
		r.handleMeta(env)

	case KindFileEnd:
		r.handleEnd(env)
	}
}

// HandleBinary appends one raw chunk to the in-flight transfer.
func (r *Receiver) HandleBinary(data []byte) {
	chunk := make([]byte, len(data))
	copy(chunk, data)

	r.mu.Lock()
	r.buf.chunks = append(r.buf.chunks, chunk)
	r.buf.received += int64(len(chunk))
	received := r.buf.received
	total := r.buf.meta.Size
	r.mu.Unlock()

	if r.handlers.OnFileProgress != nil {
		r.handlers.OnFileProgress(received, total)
	}
}

// handleMeta resets the buffer for a new transfer. A meta arriving while a
// transfer is in flight is rejected rather than silently overwriting the
// buffered chunks.
func (r *Receiver) handleMeta(env Envelope) {
	r.mu.Lock()
	if r.buf.active {
		r.mu.Unlock()
		slog.Warn("rejecting concurrent transfer", "name", env.Name)
		if r.handlers.OnError != nil {
			r.handlers.OnError(NewFileError("receive metadata", env.Name, ErrTransferInFlight))
		}
		return
	}
	r.buf = fileBuffer{meta: env, active: true}
	r.mu.Unlock()

	if r.handlers.OnFileStart != nil {
		r.handlers.OnFileStart(env.Name, env.Size)
	}
}

// handleEnd assembles the buffered chunks in arrival order. The end
// envelope's own metadata wins; fields it lacks fall back to the file-meta
// values. An end frame with no transfer behind it is ignored.
func (r *Receiver) handleEnd(env Envelope) {
	r.mu.Lock()
	if !r.buf.active && len(r.buf.chunks) == 0 {
		r.mu.Unlock()
		slog.Debug("ignoring stray end frame", "name", env.Name)
		return
	}
	meta := r.buf.meta
	chunks := r.buf.chunks
	received := r.buf.received
	r.buf = fileBuffer{}
	r.mu.Unlock()

	file := ReceivedFile{
		Name:         fallback(env.Name, meta.Name, "download"),
		MimeType:     fallback(env.MimeType, meta.MimeType, fallbackMimeType),
		DeclaredSize: env.Size,
	}
	if file.DeclaredSize == 0 {
		file.DeclaredSize = received
	}

	data := make([]byte, 0, received)
	for _, chunk := range chunks {
		data = append(data, chunk...)
	}
	file.Data = data

	if r.handlers.OnFile != nil {
		r.handlers.OnFile(file)
	}
}

// InFlight reports whether a transfer is currently buffering.
func (r *Receiver) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.active
}

func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DetectMimeType resolves a MIME type from the file extension.
func DetectMimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return fallbackMimeType
}

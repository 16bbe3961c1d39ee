package transfer

import "encoding/json"

// Envelope kinds carried in text frames.
const (
	KindChat     = "chat"
	KindFileMeta = "file-meta"
	KindFileEnd  = "file-end"
)

// Envelope is the single tagged-variant schema for every text frame on the
// data channel. Chat uses Text/SenderLabel; file-meta and file-end use
// Name/Size/MimeType. Binary frames are raw chunk bytes and carry no
// envelope.
type Envelope struct {
	Kind        string `json:"kind"`
	Text        string `json:"text,omitempty"`
	SenderLabel string `json:"senderLabel,omitempty"`
	Name        string `json:"name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Encode serializes the envelope for a text frame.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a text frame. A frame that is not valid JSON, or
// whose kind is unrecognized, degrades to a plain chat message carrying the
// raw frame content — never an error.
func DecodeEnvelope(data []byte) Envelope {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{Kind: KindChat, Text: string(data)}
	}
	switch e.Kind {
	case KindChat, KindFileMeta, KindFileEnd:
		return e
	}
	if e.Text != "" {
		return Envelope{Kind: KindChat, Text: e.Text, SenderLabel: e.SenderLabel}
	}
	return Envelope{Kind: KindChat, Text: string(data)}
}

package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	in := Envelope{Kind: KindFileMeta, Name: "photo.png", Size: 40000, MimeType: "image/png"}

	frame, err := in.Encode()
	require.NoError(t, err)

	out := DecodeEnvelope(frame)
	assert.Equal(t, in, out)
}

func TestDecodeMalformedFrameDegradesToChat(t *testing.T) {
	out := DecodeEnvelope([]byte("just plain text, not json"))

	assert.Equal(t, KindChat, out.Kind)
	assert.Equal(t, "just plain text, not json", out.Text)
}

func TestDecodeUnknownKindKeepsText(t *testing.T) {
	out := DecodeEnvelope([]byte(`{"kind":"future-thing","text":"hello","senderLabel":"bob"}`))

	assert.Equal(t, KindChat, out.Kind)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, "bob", out.SenderLabel)
}

func TestDecodeUnknownKindWithoutTextKeepsRawFrame(t *testing.T) {
	raw := `{"kind":"future-thing","payload":42}`
	out := DecodeEnvelope([]byte(raw))

	assert.Equal(t, KindChat, out.Kind)
	assert.Equal(t, raw, out.Text)
}

func TestDetectMimeType(t *testing.T) {
	assert.Contains(t, DetectMimeType("photo.png"), "image/png")
	assert.Equal(t, "application/octet-stream", DetectMimeType("no-extension"))
}

package sb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	payload := encodeMessage("text/plain; charset=UTF-8", map[string]string{"X-MMS-IM-Format": "FN=Segoe"}, []byte("hi there"))

	msg := decodeMessage(payload)
	assert.Equal(t, "text/plain", msg.ContentType)
	assert.Equal(t, "hi there", string(msg.Body))
	assert.Equal(t, "FN=Segoe", msg.Headers["X-Mms-Im-Format"])
}

func TestDecodeMessageNoSeparatorKeepsWholePayloadAsBody(t *testing.T) {
	msg := decodeMessage([]byte("just raw bytes"))
	assert.Empty(t, msg.ContentType)
	assert.Equal(t, "just raw bytes", string(msg.Body))
}

func TestDecodeMessageTypingControl(t *testing.T) {
	payload := encodeMessage("text/x-msmsgscontrol", map[string]string{"TypingUser": "me@example.com"}, []byte{0})
	msg := decodeMessage(payload)
	assert.Equal(t, "text/x-msmsgscontrol", msg.ContentType)
	assert.Equal(t, "me@example.com", msg.Headers["Typinguser"])
}

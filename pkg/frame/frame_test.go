package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Cmd: Write, SID: 7, Arg: 1, DataSize: 5}
	decoded := DecodeHeader(h.Encode())
	assert.Equal(t, h, decoded)
}

func TestFrameEncodeAppendsPayload(t *testing.T) {
	f := Frame{Header: Header{Cmd: Read, SID: 1, Arg: 0, DataSize: 3}, Payload: []byte("abc")}
	encoded := f.Encode()

	assert.Len(t, encoded, HeaderSize+3)
	assert.Equal(t, "abc", string(encoded[HeaderSize:]))
}

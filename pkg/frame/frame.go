// Package frame implements the fixed 16-byte SDSIO header and the
// request/response command set it carries.
package frame

import "encoding/binary"

// Command identifies the operation a frame carries.
type Command uint32

const (
	Open  Command = 1
	Close Command = 2
	Write Command = 3
	Read  Command = 4
	Ping  Command = 5
)

// HeaderSize is the fixed size, in bytes, of every frame header.
const HeaderSize = 16

// Header is the 16-byte, little-endian frame header shared by every
// request and response.
//
//	offset  size  field
//	0       4     cmd
//	4       4     sid
//	8       4     arg
//	12      4     data_size
type Header struct {
	Cmd      Command
	SID      uint32
	Arg      uint32
	DataSize uint32
}

// Encode writes h as 16 little-endian bytes.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Cmd))
	binary.LittleEndian.PutUint32(buf[4:8], h.SID)
	binary.LittleEndian.PutUint32(buf[8:12], h.Arg)
	binary.LittleEndian.PutUint32(buf[12:16], h.DataSize)
	return buf
}

// DecodeHeader parses a 16-byte buffer into a Header. The caller must
// ensure len(buf) >= HeaderSize.
func DecodeHeader(buf []byte) Header {
	return Header{
		Cmd:      Command(binary.LittleEndian.Uint32(buf[0:4])),
		SID:      binary.LittleEndian.Uint32(buf[4:8]),
		Arg:      binary.LittleEndian.Uint32(buf[8:12]),
		DataSize: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// Frame is a fully decoded request or response: its header plus
// whatever payload followed it.
type Frame struct {
	Header  Header
	Payload []byte
}

// Encode renders f as header bytes followed by its payload.
func (f Frame) Encode() []byte {
	out := f.Header.Encode()
	return append(out, f.Payload...)
}

// Package dispatch turns a byte stream into SDSIO requests, invokes the
// matching stream.Manager op, and writes back response frames.
package dispatch

import (
	"bufio"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/sdsio/pkg/frame"
	"github.com/samsamfire/sdsio/pkg/stream"
)

// Run reads frames from r and writes responses to w until r returns an
// error (including io.EOF on disconnect). It handles arbitrarily
// fragmented reads: one request can span multiple underlying reads and
// one read can contain multiple requests plus a partial tail, because
// each frame is read with io.ReadFull against the fixed header size and
// then the declared payload size.
//
// Run returns the error that ended the session. A clean client
// disconnect surfaces as io.EOF; callers should treat any returned
// error as fatal to this session and run mgr.Clean().
func Run(r io.Reader, w io.Writer, mgr *stream.Manager) error {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		req, err := readFrame(br)
		if err != nil {
			return err
		}

		resp := handle(req, mgr)
		if resp == nil {
			continue
		}
		if _, err := bw.Write(resp); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}

func readFrame(r io.Reader) (frame.Frame, error) {
	hdr := make([]byte, frame.HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return frame.Frame{}, err
	}
	h := frame.DecodeHeader(hdr)

	var payload []byte
	if h.DataSize > 0 {
		payload = make([]byte, h.DataSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return frame.Frame{}, err
		}
	}
	return frame.Frame{Header: h, Payload: payload}, nil
}

// handle invokes the op named by req.Header.Cmd and returns the
// encoded response frame, or nil when the op produces no response.
func handle(req frame.Frame, mgr *stream.Manager) []byte {
	switch req.Header.Cmd {
	case frame.Open:
		mode := stream.Mode(req.Header.Arg)
		name := strings.TrimRight(string(req.Payload), "\x00")
		res := mgr.Open(mode, name)
		return frame.Header{Cmd: frame.Open, SID: res.SID, Arg: uint32(res.Mode), DataSize: 0}.Encode()

	case frame.Close:
		mgr.Close(req.Header.SID)
		return nil

	case frame.Write:
		mgr.Write(req.Header.SID, req.Payload)
		return nil

	case frame.Read:
		res := mgr.Read(req.Header.SID, req.Header.Arg)
		eof := uint32(0)
		if res.EOF {
			eof = 1
		}
		h := frame.Header{Cmd: frame.Read, SID: req.Header.SID, Arg: eof, DataSize: uint32(len(res.Data))}
		out := h.Encode()
		return append(out, res.Data...)

	case frame.Ping:
		mgr.Ping(req.Header.SID)
		return frame.Header{Cmd: frame.Ping, SID: req.Header.SID, Arg: 1, DataSize: 0}.Encode()

	default:
		log.Warnf("dispatch: unknown command %d", req.Header.Cmd)
		return nil
	}
}

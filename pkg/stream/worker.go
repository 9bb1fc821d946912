package stream

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/sdsio/pkg/buffer"
)

const (
	writeChunkSize = 64 * 1024
	readChunkSize  = 128 * 1024
)

// runWriteWorker drains data the client has handed to s.Buffer into
// s.file, in arrival order, until EOF is set and the buffer is dry.
// On a file error it logs and returns; the stream is then left
// "failed" and degrades at the next op, but is still cleaned up
// correctly by CLOSE. The file descriptor is closed here, never by
// the op goroutine, so the op side never touches a closed handle.
func runWriteWorker(s *Stream) {
	defer s.wg.Done()
	defer s.file.Close()

	for {
		data := s.Buffer.Read(writeChunkSize, buffer.BlockForever)
		if len(data) > 0 {
			if _, err := s.file.Write(data); err != nil {
				log.Warnf("stream write worker: [sid %d] %q: file write error: %v", s.ID, s.Name, err)
				s.markFailed()
				return
			}
			continue
		}
		if s.Buffer.EOF() {
			for {
				rest := s.Buffer.Read(writeChunkSize, buffer.BlockForever)
				if len(rest) == 0 {
					return
				}
				if _, err := s.file.Write(rest); err != nil {
					log.Warnf("stream write worker: [sid %d] %q: file write error draining tail: %v", s.ID, s.Name, err)
					s.markFailed()
					return
				}
			}
		}
	}
}

// runReadWorker fills s.Buffer from s.file in large chunks until the
// file is exhausted or a stop is requested by CLOSE, then sets EOF.
func runReadWorker(s *Stream) {
	defer s.wg.Done()
	defer s.file.Close()

	chunk := make([]byte, readChunkSize)
	for {
		select {
		case <-s.stopRead:
			s.Buffer.SetEOF()
			return
		default:
		}

		n, err := s.file.Read(chunk)
		if n > 0 {
			s.Buffer.Write(chunk[:n])
		}
		if err != nil {
			if err != io.EOF {
				log.Warnf("stream read worker: [sid %d] %q: file read error: %v", s.ID, s.Name, err)
			}
			s.Buffer.SetEOF()
			return
		}
	}
}

package stream

import (
	"os"
	"sync"
	"time"

	"github.com/samsamfire/sdsio/pkg/buffer"
)

// Mode is the direction of a stream, as chosen by the client on OPEN.
type Mode uint32

const (
	Read  Mode = 0
	Write Mode = 1
)

// readPullTimeout bounds how long a READ op waits on an empty buffer
// before deciding there is nothing more to gather right now.
const readPullTimeout = 50 * time.Millisecond

// Stream is one logical byte channel bound to one host file for its
// lifetime. It is mutated only by its worker (file I/O) and by the
// dispatcher, through Manager, producing to or consuming from Buffer.
type Stream struct {
	ID   uint32
	Name string
	Mode Mode
	Path string

	file   *os.File
	Buffer *buffer.Bounded

	stopRead chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	failed bool
}

func (s *Stream) markFailed() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
}

// Failed reports whether the stream's worker has stopped because of a
// file error. The stream stays in the open set until CLOSE; further
// ops on it degrade to failure responses.
func (s *Stream) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// join waits for the worker goroutine to exit. Joining a worker that
// has already finished (e.g. after a file error) is a no-op.
func (s *Stream) join() {
	s.wg.Wait()
}

// Package stream implements the stream manager: it owns the set of
// open streams, their ids, names, directory policy, index allocation,
// and the five-op request surface (Open/Close/Write/Read/Ping) that
// the frame dispatcher drives.
package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/samsamfire/sdsio/pkg/buffer"
)

// Config controls where stream files live and how WRITE indices are
// allocated. Explicit is true when idx-start, idx-end, or idx-list was
// set in sdsio.yml; it switches WRITE index allocation from probing the
// filesystem for the smallest free index to drawing from a fixed
// Allocator seeded once per name.
type Config struct {
	Dir              string
	IdxStart, IdxEnd int
	IdxList          []int
	Explicit         bool
}

// DefaultConfig is the zero-configuration behavior: files live in the
// working directory and WRITE picks the smallest non-existing index.
func DefaultConfig(workDir string) Config {
	return Config{Dir: workDir, IdxStart: 0, IdxEnd: NoLimit}
}

// Manager owns the sid -> Stream map under a single mutex that
// protects only sid allocation and the name-uniqueness check.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	nextID    uint32
	streams   map[uint32]*Stream
	byName    map[string]*Stream
	allocator map[string]Allocator

	writeCapacity int
	readCapacity  int

	// OnActivity, when set, is called after every successful Write and
	// non-empty Read. The status reporter uses it to know a stream
	// moved bytes recently without polling stream state itself.
	OnActivity func()
}

// OpenResult is the outcome of Manager.Open, independent of any wire
// format.
type OpenResult struct {
	SID  uint32
	Mode Mode
}

// ReadResult is the outcome of Manager.Read.
type ReadResult struct {
	Data []byte
	EOF  bool
}

// NewManager creates a Manager rooted at cfg.Dir, creating the
// directory if it is a missing subdirectory of the work dir.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("stream: create directory %q: %w", cfg.Dir, err)
	}
	return &Manager{
		cfg:           cfg,
		streams:       make(map[uint32]*Stream),
		byName:        make(map[string]*Stream),
		allocator:     make(map[string]Allocator),
		writeCapacity: buffer.DefaultWriteCapacity,
		readCapacity:  buffer.DefaultReadCapacity,
	}, nil
}

// Open validates name, resolves the on-disk path for mode, opens the
// file, and spawns a worker for it. On any failure it returns sid=0.
func (m *Manager) Open(mode Mode, name string) OpenResult {
	if err := ValidateName(name); err != nil {
		log.Warnf("stream: open rejected, invalid name %q", name)
		return OpenResult{SID: 0, Mode: mode}
	}

	m.mu.Lock()
	if _, exists := m.byName[name]; exists {
		m.mu.Unlock()
		log.Warnf("stream: open rejected, %q already open", name)
		return OpenResult{SID: 0, Mode: mode}
	}
	m.mu.Unlock()

	var (
		file *os.File
		path string
		err  error
	)
	switch mode {
	case Write:
		path, err = m.resolveWritePath(name)
	case Read:
		path, err = m.resolveReadPath(name)
	default:
		log.Warnf("stream: open rejected, unknown mode %d for %q", mode, name)
		return OpenResult{SID: 0, Mode: mode}
	}
	if err != nil {
		log.Warnf("stream: open failed for %q: %v", name, err)
		return OpenResult{SID: 0, Mode: mode}
	}

	if mode == Write {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	} else {
		file, err = os.Open(path)
	}
	if err != nil {
		log.Warnf("stream: open failed for %q at %q: %v", name, path, err)
		return OpenResult{SID: 0, Mode: mode}
	}

	m.mu.Lock()
	if _, exists := m.byName[name]; exists {
		m.mu.Unlock()
		file.Close()
		log.Warnf("stream: open rejected, %q already open", name)
		return OpenResult{SID: 0, Mode: mode}
	}
	m.nextID++
	sid := m.nextID

	s := &Stream{
		ID:       sid,
		Name:     name,
		Mode:     mode,
		Path:     path,
		file:     file,
		stopRead: make(chan struct{}),
	}
	if mode == Write {
		s.Buffer = buffer.NewBounded(m.writeCapacity)
	} else {
		s.Buffer = buffer.NewBounded(m.readCapacity)
	}
	m.streams[sid] = s
	m.byName[name] = s
	m.mu.Unlock()

	s.wg.Add(1)
	if mode == Write {
		go runWriteWorker(s)
	} else {
		go runReadWorker(s)
	}

	direction := "Playback"
	if mode == Write {
		direction = "Record"
	}
	log.Infof("%s: [sid %d] %q opened at %q", direction, sid, name, path)
	return OpenResult{SID: sid, Mode: mode}
}

// resolveWritePath draws the next index for name and returns its path.
func (m *Manager) resolveWritePath(name string) (string, error) {
	if m.cfg.Explicit {
		idx, ok := m.allocatorFor(name).Next()
		if !ok {
			return "", ErrAllocatorExhausted
		}
		return m.sdsPath(name, idx), nil
	}
	for idx := 0; ; idx++ {
		path := m.sdsPath(name, idx)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
}

// resolveReadPath reads the cursor file for name (defaulting to 0),
// verifies the target file exists, and advances the cursor.
func (m *Manager) resolveReadPath(name string) (string, error) {
	idx := m.readCursor(name)
	path := m.sdsPath(name, idx)
	if _, err := os.Stat(path); err != nil {
		return "", ErrFileOpen
	}
	if err := m.writeCursor(name, idx+1); err != nil {
		log.Warnf("stream: could not advance read cursor for %q: %v", name, err)
	}
	return path, nil
}

func (m *Manager) allocatorFor(name string) Allocator {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocator[name]
	if !ok {
		if len(m.cfg.IdxList) > 0 {
			a = NewListAllocator(m.cfg.IdxList)
		} else {
			a = NewSequentialAllocator(m.cfg.IdxStart, m.cfg.IdxEnd)
		}
		m.allocator[name] = a
	}
	return a
}

func (m *Manager) sdsPath(name string, idx int) string {
	return filepath.Join(m.cfg.Dir, fmt.Sprintf("%s.%d.sds", name, idx))
}

func (m *Manager) cursorPath(name string) string {
	return filepath.Join(m.cfg.Dir, name+".index.txt")
}

func (m *Manager) readCursor(name string) int {
	data, err := os.ReadFile(m.cursorPath(name))
	if err != nil {
		return 0
	}
	idx, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return idx
}

func (m *Manager) writeCursor(name string, idx int) error {
	return os.WriteFile(m.cursorPath(name), []byte(strconv.Itoa(idx)), 0o644)
}

// Close terminates sid's stream: it signals the buffer's EOF (and, for
// READ, a stop on the read worker), joins the worker, and removes the
// stream from the set. An unknown sid is not an error.
func (m *Manager) Close(sid uint32) {
	m.mu.Lock()
	s, ok := m.streams[sid]
	if ok {
		delete(m.streams, sid)
		delete(m.byName, s.Name)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if s.Mode == Read {
		close(s.stopRead)
	}
	s.Buffer.SetEOF()
	s.join()
	log.Infof("stream closed: [sid %d] %q", sid, s.Name)
}

// Write hands data to sid's buffer if it is open for WRITE; otherwise
// it is discarded.
func (m *Manager) Write(sid uint32, data []byte) {
	m.mu.Lock()
	s, ok := m.streams[sid]
	m.mu.Unlock()
	if !ok || s.Mode != Write || s.Failed() {
		return
	}
	s.Buffer.Write(data)
	if m.OnActivity != nil {
		m.OnActivity()
	}
}

// Read pulls up to size bytes from sid's buffer, polling with a short
// timeout until size bytes are gathered or a pull comes back empty.
func (m *Manager) Read(sid uint32, size uint32) ReadResult {
	m.mu.Lock()
	s, ok := m.streams[sid]
	m.mu.Unlock()
	if !ok || s.Mode != Read {
		return ReadResult{}
	}

	data := make([]byte, 0, size)
	for uint32(len(data)) < size {
		chunk := s.Buffer.Read(int(size)-len(data), readPullTimeout)
		if len(chunk) == 0 {
			break
		}
		data = append(data, chunk...)
	}
	eof := len(data) == 0 && s.Buffer.EOF()
	if len(data) > 0 && m.OnActivity != nil {
		m.OnActivity()
	}
	return ReadResult{Data: data, EOF: eof}
}

// Ping always succeeds.
func (m *Manager) Ping(sid uint32) {}

// Clean closes every open stream, as if each had received CLOSE. It is
// run on transport disconnect or fatal transport error.
func (m *Manager) Clean() {
	m.mu.Lock()
	sids := make([]uint32, 0, len(m.streams))
	for sid := range m.streams {
		sids = append(sids, sid)
	}
	m.mu.Unlock()

	for _, sid := range sids {
		m.Close(sid)
	}
}

// OpenStreamCount reports the number of currently open streams, used
// by the status reporter and by tests asserting shutdown invariants.
func (m *Manager) OpenStreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

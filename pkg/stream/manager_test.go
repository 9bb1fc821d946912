package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(DefaultConfig(dir))
	require.NoError(t, err)
	return m
}

func TestOpenWriteCloseHappyPath(t *testing.T) {
	m := newTestManager(t)

	res := m.Open(Write, "sensor")
	require.NotZero(t, res.SID)

	m.Write(res.SID, []byte("hello"))
	m.Close(res.SID)

	data, err := os.ReadFile(filepath.Join(m.cfg.Dir, "sensor.0.sds"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteIndexBump(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 3; i++ {
		res := m.Open(Write, "sensor")
		m.Write(res.SID, []byte("x"))
		m.Close(res.SID)
	}

	for i := 0; i < 3; i++ {
		path := filepath.Join(m.cfg.Dir, fmt.Sprintf("sensor.%d.sds", i))
		assert.FileExists(t, path)
	}
}

func TestReadWithCursorAdvance(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(m.cfg.Dir, "data.0.sds"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.cfg.Dir, "data.1.sds"), []byte("BB"), 0o644))

	res := m.Open(Read, "data")
	require.NotZero(t, res.SID)
	got := readAll(t, m, res.SID)
	assert.Equal(t, "A", got)
	m.Close(res.SID)

	res = m.Open(Read, "data")
	require.NotZero(t, res.SID)
	got = readAll(t, m, res.SID)
	assert.Equal(t, "BB", got)
	m.Close(res.SID)

	cursor, err := os.ReadFile(filepath.Join(m.cfg.Dir, "data.index.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(cursor))
}

func readAll(t *testing.T, m *Manager, sid uint32) string {
	t.Helper()
	var out []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res := m.Read(sid, 64)
		out = append(out, res.Data...)
		if res.EOF {
			return string(out)
		}
	}
	t.Fatal("readAll: did not observe EOF in time")
	return ""
}

func TestDuplicateOpenRejected(t *testing.T) {
	m := newTestManager(t)

	first := m.Open(Write, "x")
	require.NotZero(t, first.SID)

	second := m.Open(Write, "x")
	assert.Zero(t, second.SID)

	m.Close(first.SID)

	third := m.Open(Write, "x")
	assert.NotZero(t, third.SID)
	m.Close(third.SID)
}

func TestBadNameRejected(t *testing.T) {
	m := newTestManager(t)

	res := m.Open(Write, "a/b")
	assert.Zero(t, res.SID)

	entries, err := os.ReadDir(m.cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPingAlwaysSucceeds(t *testing.T) {
	m := newTestManager(t)
	m.Ping(0) // must not panic regardless of sid
}

func TestCleanClosesAllStreams(t *testing.T) {
	m := newTestManager(t)
	a := m.Open(Write, "a")
	b := m.Open(Write, "b")
	require.NotZero(t, a.SID)
	require.NotZero(t, b.SID)

	m.Clean()
	assert.Equal(t, 0, m.OpenStreamCount())
}

func TestExplicitIndexListAllocator(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Dir: dir, Explicit: true, IdxList: []int{7, 9}}
	m, err := NewManager(cfg)
	require.NoError(t, err)

	first := m.Open(Write, "trace")
	require.NotZero(t, first.SID)
	m.Close(first.SID)
	assert.FileExists(t, filepath.Join(dir, "trace.7.sds"))

	second := m.Open(Write, "trace")
	require.NotZero(t, second.SID)
	m.Close(second.SID)
	assert.FileExists(t, filepath.Join(dir, "trace.9.sds"))

	third := m.Open(Write, "trace")
	assert.Zero(t, third.SID)
}

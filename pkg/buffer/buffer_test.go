package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedWriteReadFIFO(t *testing.T) {
	b := NewBounded(1024)
	b.Write([]byte("hello"))
	b.Write([]byte(" world"))

	got := b.Read(32, 0)
	assert.Equal(t, "hello world", string(got))
}

func TestBoundedShortReadIsNotError(t *testing.T) {
	b := NewBounded(1024)
	b.Write([]byte("ab"))

	got := b.Read(10, 0)
	assert.Equal(t, "ab", string(got))
	assert.False(t, b.EOF())
}

func TestBoundedReadWaitsForData(t *testing.T) {
	b := NewBounded(1024)
	done := make(chan []byte, 1)
	go func() {
		done <- b.Read(5, 500*time.Millisecond)
	}()
	time.Sleep(20 * time.Millisecond)
	b.Write([]byte("data!"))

	select {
	case got := <-done:
		assert.Equal(t, "data!", string(got))
	case <-time.After(time.Second):
		t.Fatal("Read did not return after data arrived")
	}
}

func TestBoundedReadZeroTimeoutDoesNotWaitOnEmptyBuffer(t *testing.T) {
	b := NewBounded(1024)
	start := time.Now()
	got := b.Read(5, 0)
	elapsed := time.Since(start)

	assert.Nil(t, got)
	assert.False(t, b.EOF())
	assert.Less(t, elapsed, 20*time.Millisecond, "a zero timeout must return immediately, not block")
}

func TestBoundedReadBlockForeverWaitsForData(t *testing.T) {
	b := NewBounded(1024)
	done := make(chan []byte, 1)
	go func() {
		done <- b.Read(5, BlockForever)
	}()
	time.Sleep(50 * time.Millisecond)
	b.Write([]byte("data!"))

	select {
	case got := <-done:
		assert.Equal(t, "data!", string(got))
	case <-time.After(time.Second):
		t.Fatal("Read did not return after data arrived")
	}
}

func TestBoundedReadTimesOutWhenEmpty(t *testing.T) {
	b := NewBounded(1024)
	start := time.Now()
	got := b.Read(5, 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, got)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestBoundedEOFUnblocksReader(t *testing.T) {
	b := NewBounded(1024)
	done := make(chan []byte, 1)
	go func() {
		done <- b.Read(5, 5*time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	b.SetEOF()

	select {
	case got := <-done:
		assert.Nil(t, got)
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after SetEOF")
	}
	assert.True(t, b.EOF())
}

func TestBoundedEOFUnblocksWriter(t *testing.T) {
	b := NewBounded(4)
	b.Write([]byte("abcd"))

	done := make(chan struct{})
	go func() {
		b.Write([]byte("more"))
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	b.SetEOF()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write did not unblock after SetEOF")
	}
}

func TestBoundedWriteBlocksUntilSpace(t *testing.T) {
	b := NewBounded(4)
	b.Write([]byte("abcd"))

	writeDone := make(chan struct{})
	go func() {
		b.Write([]byte("ef"))
		close(writeDone)
	}()

	select {
	case <-writeDone:
		t.Fatal("Write should have blocked on a full buffer")
	case <-time.After(50 * time.Millisecond):
	}

	got := b.Read(4, 0)
	require.Equal(t, "abcd", string(got))

	select {
	case <-writeDone:
	case <-time.After(time.Second):
		t.Fatal("Write did not unblock after space freed")
	}
}

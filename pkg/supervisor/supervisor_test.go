package supervisor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct{ n int32 }

func (c *countingCleaner) Clean() { atomic.AddInt32(&c.n, 1) }

func TestRunRestartsOnError(t *testing.T) {
	stop := make(chan struct{})
	cleaner := &countingCleaner{}

	var calls int32
	done := make(chan struct{})
	go func() {
		Run(stop, cleaner, func() error {
			n := atomic.AddInt32(&calls, 1)
			if n >= 3 {
				close(stop)
				return nil
			}
			return errors.New("boom")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&cleaner.n), int32(3))
}

func TestRunStopsWithoutCallingServeAgain(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	cleaner := &countingCleaner{}

	called := false
	Run(stop, cleaner, func() error {
		called = true
		return nil
	})
	assert.False(t, called)
}

func TestStatusMarkProducesActivity(t *testing.T) {
	s := NewStatus()
	done := make(chan struct{})
	go func() {
		s.Start()
		close(done)
	}()

	s.Mark()
	time.Sleep(2 * statusPeriod)
	assert.Equal(t, int32(0), atomic.LoadInt32(&s.active), "a tick consumed the mark and printed a dot")
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

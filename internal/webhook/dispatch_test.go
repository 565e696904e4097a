package webhook

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_RunsTasks(t *testing.T) {
	d := NewDispatcher()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		d.Dispatch("call-1", func() { ran.Add(1) })
	}
	d.Wait()

	assert.Equal(t, int32(10), ran.Load())
}

func TestDispatcher_NeverBlocksCaller(t *testing.T) {
	d := NewDispatcher()
	release := make(chan struct{})

	start := time.Now()
	d.Dispatch("call-1", func() { <-release })
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 100*time.Millisecond)
	close(release)
	d.Wait()
}

func TestDispatcher_SerializesPerCallID(t *testing.T) {
	d := NewDispatcher()

	var active, overlapped atomic.Int32
	task := func() {
		if active.Add(1) != 1 {
			overlapped.Store(1)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
	}

	for i := 0; i < 5; i++ {
		d.Dispatch("same-call", task)
	}
	d.Wait()

	assert.Equal(t, int32(0), overlapped.Load(), "tasks for one call id must not overlap")
}

func TestDispatcher_DropsIdleLockEntries(t *testing.T) {
	d := NewDispatcher()

	for i := 0; i < 50; i++ {
		d.Dispatch(fmt.Sprintf("call-%d", i), func() {})
		d.Dispatch("shared-call", func() { time.Sleep(time.Millisecond) })
	}
	d.Wait()

	d.mu.Lock()
	remaining := len(d.locks)
	d.mu.Unlock()
	assert.Zero(t, remaining, "finished calls must not pin lock entries")
}

func TestDispatcher_DifferentCallIDsRunIndependently(t *testing.T) {
	d := NewDispatcher()

	first := make(chan struct{})
	second := make(chan struct{})

	d.Dispatch("call-a", func() { <-first })
	d.Dispatch("call-b", func() { close(second) })

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("task for a different call id was blocked")
	}

	close(first)
	d.Wait()
}

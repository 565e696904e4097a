package webhook

import "sync"

// callLock serializes tasks for one call id. refs counts the goroutines
// holding or waiting on it so the entry can be dropped when the last one
// leaves.
type callLock struct {
	mu   sync.Mutex
	refs int
}

// Dispatcher runs callback processing out of band. Tasks for the same call
// id are serialized so a duplicate delivery cannot race its twin into
// concurrent report generation; different call ids run independently and may
// finish out of order.
type Dispatcher struct {
	wg    sync.WaitGroup
	mu    sync.Mutex
	locks map[string]*callLock
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{locks: make(map[string]*callLock)}
}

// Dispatch schedules task on its own goroutine. It never blocks the caller.
func (d *Dispatcher) Dispatch(callID string, task func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		l := d.acquire(callID)
		defer d.release(callID, l)

		l.mu.Lock()
		defer l.mu.Unlock()
		task()
	}()
}

func (d *Dispatcher) acquire(callID string) *callLock {
	d.mu.Lock()
	defer d.mu.Unlock()
	l := d.locks[callID]
	if l == nil {
		l = &callLock{}
		d.locks[callID] = l
	}
	l.refs++
	return l
}

func (d *Dispatcher) release(callID string, l *callLock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(d.locks, callID)
	}
}

// Wait blocks until every dispatched task has finished. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

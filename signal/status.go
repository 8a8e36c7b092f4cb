package signal

import (
	"context"
	"sync"
)

// Status is a completion handle for an asynchronous set or trigger.
// It finishes exactly once; extra calls to Finish are ignored.
type Status struct {
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

// NewStatus returns an unfinished Status.
func NewStatus() *Status {
	return &Status{done: make(chan struct{})}
}

// NullStatus returns an already-completed successful Status, for operations
// which finish synchronously.
func NullStatus() *Status {
	st := NewStatus()
	st.Finish(nil)
	return st
}

// Finish marks the status complete, recording err if non-nil.
func (st *Status) Finish(err error) {
	st.once.Do(func() {
		st.mu.Lock()
		st.err = err
		st.mu.Unlock()
		close(st.done)
	})
}

// Done returns a channel which closes when the operation completes.
func (st *Status) Done() <-chan struct{} {
	return st.done
}

// Err returns the recorded error; only meaningful after Done closes.
func (st *Status) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Wait blocks until the operation completes or the context expires,
// returning the operation's error or the context's.
func (st *Status) Wait(ctx context.Context) error {
	select {
	case <-st.done:
		return st.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

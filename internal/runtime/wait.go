package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// WaitKey identifies a suspended node: the scope that owns it and its id.
type WaitKey struct {
	Scope int
	Node  domain.NodeID
}

// WaitHandle is a one-shot signal a suspended node blocks on.
type WaitHandle struct {
	once sync.Once
	done chan struct{}
}

func newWaitHandle() *WaitHandle {
	return &WaitHandle{done: make(chan struct{})}
}

// Signal wakes the waiter. Extra signals are no-ops.
func (h *WaitHandle) Signal() {
	h.once.Do(func() { close(h.done) })
}

// Done is closed once the handle has been signalled.
func (h *WaitHandle) Done() <-chan struct{} {
	return h.done
}

// WaitRegistry holds the handles of nodes currently suspended.
// It is shared between the walking goroutine and the messaging goroutines.
type WaitRegistry struct {
	mu      sync.Mutex
	handles map[WaitKey]*WaitHandle
}

// NewWaitRegistry creates an empty registry.
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{handles: make(map[WaitKey]*WaitHandle)}
}

// Register creates the handle for key, replacing any stale one.
func (w *WaitRegistry) Register(key WaitKey) *WaitHandle {
	h := newWaitHandle()
	w.mu.Lock()
	w.handles[key] = h
	w.mu.Unlock()
	return h
}

// Remove deletes the entry for key if it still belongs to h.
func (w *WaitRegistry) Remove(key WaitKey, h *WaitHandle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.handles[key]; ok && cur == h {
		delete(w.handles, key)
	}
}

// Signal wakes the node suspended under key.
// It reports false when nothing is waiting; the signal is dropped, not queued.
func (w *WaitRegistry) Signal(key WaitKey) bool {
	w.mu.Lock()
	h, ok := w.handles[key]
	w.mu.Unlock()
	if !ok {
		return false
	}
	h.Signal()
	return true
}

// Waiting reports whether a node is suspended under key.
func (w *WaitRegistry) Waiting(key WaitKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.handles[key]
	return ok
}

// Len is the number of suspended nodes.
func (w *WaitRegistry) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handles)
}

// ErrCallTimeout is returned by Await when the future does not resolve in time.
var ErrCallTimeout = errors.New("timed out waiting for messaging actor")

// Await blocks on a future from another goroutine for at most timeout.
// It deliberately ignores run cancellation: the bound is the only way out.
func Await(future <-chan error, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err, ok := <-future:
		if !ok {
			return nil
		}
		return err
	case <-timer.C:
		return ErrCallTimeout
	}
}

// suspend blocks until h is signalled or ctx is cancelled, re-checking ctx every poll.
func suspend(ctx context.Context, h *WaitHandle, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-h.Done():
			return nil
		case <-ctx.Done():
			return domain.ErrStopped
		case <-ticker.C:
			if ctx.Err() != nil {
				return domain.ErrStopped
			}
		}
	}
}

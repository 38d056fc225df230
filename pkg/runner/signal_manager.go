package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalManager turns OS interrupts (Ctrl+C, SIGTERM) into stop requests.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSignalManager creates a new manager and immediately starts listening for signals.
func NewSignalManager() *SignalManager {
	sm := &SignalManager{}
	sm.Reset()
	return sm
}

// Context returns the current signal context. It is cancelled on the next signal.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Reset re-arms the signal listener after a signal has been handled.
func (sm *SignalManager) Reset() {
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.ctx, sm.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}

// Forward calls stop on every signal received before done is closed.
// A run that is already stopping ignores further calls, so repeated Ctrl+C is harmless.
func (sm *SignalManager) Forward(done <-chan struct{}, stop func() error) {
	for {
		select {
		case <-done:
			return
		case <-sm.Context().Done():
			_ = stop()
			sm.Reset()
		}
	}
}

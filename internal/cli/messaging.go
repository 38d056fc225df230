package cli

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
)

// ErrNoMessenger is reported by sends made while no messaging backend is connected.
var ErrNoMessenger = errors.New("no messenger configured")

// Fanout delivers every message to all registered messengers.
// Backends can be swapped while scripts run, e.g. when the bot token changes.
type Fanout struct {
	mu      sync.RWMutex
	targets map[string]ports.Messenger
}

// NewFanout creates an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{targets: make(map[string]ports.Messenger)}
}

// Set registers m under name, replacing any previous messenger with that name.
func (f *Fanout) Set(name string, m ports.Messenger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets[name] = m
}

// Remove unregisters name.
func (f *Fanout) Remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.targets, name)
}

// Names returns the registered messenger names, sorted.
func (f *Fanout) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.targets))
	for name := range f.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Fanout) snapshot() []ports.Messenger {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.targets))
	for name := range f.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]ports.Messenger, len(names))
	for i, name := range names {
		out[i] = f.targets[name]
	}
	return out
}

// SendDirectMessage implements ports.Messenger.
func (f *Fanout) SendDirectMessage(ctx context.Context, text string) <-chan error {
	return f.send(func(m ports.Messenger) <-chan error {
		return m.SendDirectMessage(ctx, text)
	})
}

// SendDirectMessageWithImage implements ports.Messenger.
func (f *Fanout) SendDirectMessageWithImage(ctx context.Context, text string, image []byte, filename string) <-chan error {
	return f.send(func(m ports.Messenger) <-chan error {
		return m.SendDirectMessageWithImage(ctx, text, image, filename)
	})
}

// send resolves once every backend has answered, with their joined errors.
func (f *Fanout) send(call func(ports.Messenger) <-chan error) <-chan error {
	targets := f.snapshot()
	if len(targets) == 0 {
		return ports.Resolved(ErrNoMessenger)
	}
	futures := make([]<-chan error, len(targets))
	for i, m := range targets {
		futures[i] = call(m)
	}

	out := make(chan error, 1)
	go func() {
		defer close(out)
		var errs []error
		for _, fut := range futures {
			if err := <-fut; err != nil {
				errs = append(errs, err)
			}
		}
		out <- errors.Join(errs...)
	}()
	return out
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// subscriberBuffer is how many events a slow client may fall behind before events are dropped.
const subscriberBuffer = 32

// StreamManager fans lifecycle events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe returns a channel of JSON events and a function that closes it.
func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber without blocking.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping event", "payload_size", len(msg))
		}
	}
}

// Subscribers returns the number of connected clients.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Hooks returns lifecycle hooks that broadcast every event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { sm.publish(e) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { sm.publish(e) },
		OnRunStart:  func(_ context.Context, e *domain.RunEvent) { sm.publish(runEvent(e)) },
		OnRunEnd:    func(_ context.Context, e *domain.RunEvent) { sm.publish(runEvent(e)) },
		OnCommand:   func(_ context.Context, e *domain.CommandEvent) { sm.publish(e) },
	}
}

type runEventPayload struct {
	*domain.RunEvent
	Error string `json:"error,omitempty"`
}

func runEvent(e *domain.RunEvent) runEventPayload {
	p := runEventPayload{RunEvent: e}
	if e.Err != nil && e.Status == domain.StatusFailed {
		p.Error = e.Err.Error()
	}
	return p
}

func (sm *StreamManager) publish(v any) {
	if sm.Subscribers() == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		sm.logger.Warn("SSE: Cannot encode event", "err", err)
		return
	}
	sm.Broadcast(string(data))
}

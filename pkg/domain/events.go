package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventRunStart  EventType = "run_start"
	EventRunEnd    EventType = "run_end"
	EventCommand   EventType = "command"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID NodeID `json:"node_id"`
	Kind   Kind   `json:"kind"`
	Script string `json:"script,omitempty"`
	Depth  int    `json:"depth"`
	// Next is the successor chosen by the handler (leave events only).
	Next NodeID `json:"next,omitempty"`
	// Duration is the time spent in the handler (leave events only).
	Duration time.Duration `json:"duration,omitempty"`
}

// RunEvent represents the start or end of a top-level run.
type RunEvent struct {
	EventBase
	Script string    `json:"script"`
	Status RunStatus `json:"status"`
	Err    error     `json:"-"`
}

// CommandEvent represents an external command dispatched to the engine.
type CommandEvent struct {
	EventBase
	Command string         `json:"command"`
	Result  DispatchResult `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every callback is optional.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnRunStart  func(context.Context, *RunEvent)
	OnRunEnd    func(context.Context, *RunEvent)
	OnCommand   func(context.Context, *CommandEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave: chain(h.OnNodeLeave, other.OnNodeLeave),
		OnRunStart:  chain(h.OnRunStart, other.OnRunStart),
		OnRunEnd:    chain(h.OnRunEnd, other.OnRunEnd),
		OnCommand:   chain(h.OnCommand, other.OnCommand),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

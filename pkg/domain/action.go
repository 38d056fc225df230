package domain

import "fmt"

// ActionKind discriminates CommandAction.
type ActionKind string

const (
	// ActionSignalWait resumes a suspended discord_wait node.
	ActionSignalWait ActionKind = "signal_wait"
	// ActionStartSubgraph starts a graph walk at a discord_slash node.
	ActionStartSubgraph ActionKind = "start_subgraph"
)

// CommandAction is what an external command does when dispatched.
// Scope is only meaningful for ActionSignalWait: it names the call frame
// that owns the wait node, so equal node ids in nested scripts do not collide.
type CommandAction struct {
	Kind  ActionKind `json:"kind"`
	Scope int        `json:"scope,omitempty"`
	Node  NodeID     `json:"node"`
}

// SignalWait builds an action that resumes node in the given scope.
func SignalWait(scope int, node NodeID) CommandAction {
	return CommandAction{Kind: ActionSignalWait, Scope: scope, Node: node}
}

// StartSubgraph builds an action that starts a walk at node.
func StartSubgraph(node NodeID) CommandAction {
	return CommandAction{Kind: ActionStartSubgraph, Node: node}
}

func (a CommandAction) String() string {
	switch a.Kind {
	case ActionSignalWait:
		return fmt.Sprintf("signal(%d/%s)", a.Scope, a.Node)
	case ActionStartSubgraph:
		return fmt.Sprintf("start(%s)", a.Node)
	default:
		return string(a.Kind)
	}
}

// DispatchResult reports what happened to a dispatched command.
type DispatchResult string

const (
	// DispatchHandled means the command signalled a node or started a walk.
	DispatchHandled DispatchResult = "handled"
	// DispatchNotWaiting means the command is registered but its node is not suspended.
	// The signal is dropped, never queued.
	DispatchNotWaiting DispatchResult = "not_waiting"
	// DispatchBusy means a slash walk was requested while another walk is executing.
	DispatchBusy DispatchResult = "busy"
	// DispatchUnknown means no running script handles the command.
	DispatchUnknown DispatchResult = "unknown"
)

// Message renders the reply shown to whoever issued the command.
func (r DispatchResult) Message(command string) string {
	switch r {
	case DispatchHandled:
		return fmt.Sprintf("Command /%s received...", command)
	case DispatchNotWaiting:
		return fmt.Sprintf("Command /%s received, but no node is waiting for it.", command)
	case DispatchBusy:
		return fmt.Sprintf("Command /%s ignored: another walk is still running.", command)
	default:
		return fmt.Sprintf("Command /%s is declared, but no running script is handling it.", command)
	}
}

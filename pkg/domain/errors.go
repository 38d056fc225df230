package domain

import "errors"

// ErrScriptNotFound is returned by script stores when a script name is unknown.
var ErrScriptNotFound = errors.New("script not found")

// ErrInvalidScriptName is returned when a script name would escape the store root.
var ErrInvalidScriptName = errors.New("invalid script name")

// ErrEmptyScript is returned when a stored script compiles to no nodes.
var ErrEmptyScript = errors.New("script has no nodes")

// ErrNoStartNode is returned when a graph has neither a start node nor a slash entry point.
var ErrNoStartNode = errors.New("no start node")

// ErrStartNodeNotFound is returned when an explicit start node id is not in the graph.
var ErrStartNodeNotFound = errors.New("start node not found")

// ErrDanglingSuccessor is returned when a successor reference names a node outside the current scope.
var ErrDanglingSuccessor = errors.New("successor not found in scope")

// ErrRecursionLimit is returned when nested script calls exceed the depth ceiling.
var ErrRecursionLimit = errors.New("max recursion depth reached")

// ErrLoopBreakOutOfScope is returned when a loop_break would break a loop owned by an enclosing script.
var ErrLoopBreakOutOfScope = errors.New("loop break target not in current scope")

// ErrHandlerPanic is returned when a node handler panics.
var ErrHandlerPanic = errors.New("node handler panicked")

// ErrStopped signals that a run was cancelled. It is an outcome, not a failure.
var ErrStopped = errors.New("run stopped")

// ErrRunInProgress is returned when a run is started while another one is active.
var ErrRunInProgress = errors.New("a script is already running")

// ErrNoRunActive is returned when stopping or signalling without an active run.
var ErrNoRunActive = errors.New("no script is running")

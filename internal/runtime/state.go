package runtime

import (
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// infinite marks a loop with no iteration bound. It is distinct from 0 remaining.
const infinite = -1

// LoopEntry is one open loop on the run-wide loop stack, qualified by the scope that pushed it.
type LoopEntry struct {
	Scope int
	Node  domain.NodeID
}

// Frame is the state local to one graph invocation: the top-level graph or one script call.
type Frame struct {
	Scope  int
	Script string

	nodes   map[domain.NodeID]*domain.Node
	order   []domain.NodeID
	loops   map[domain.NodeID]int
	outputs map[domain.NodeID]map[int]any
}

// Node looks up a node in this frame's table.
func (f *Frame) Node(id domain.NodeID) (*domain.Node, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

// Nodes returns the frame's nodes in graph order.
func (f *Frame) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.nodes[id])
	}
	return out
}

// Output returns the value a node wrote to one of its output slots.
func (f *Frame) Output(node domain.NodeID, slot int) (any, bool) {
	slots, ok := f.outputs[node]
	if !ok {
		return nil, false
	}
	v, ok := slots[slot]
	return v, ok
}

// SetOutput records a value on a node's output slot.
func (f *Frame) SetOutput(node domain.NodeID, slot int, v any) {
	slots, ok := f.outputs[node]
	if !ok {
		slots = make(map[int]any)
		f.outputs[node] = slots
	}
	slots[slot] = v
}

// LoopRemaining returns the stored iteration count of an active loop.
func (f *Frame) LoopRemaining(node domain.NodeID) (int, bool) {
	n, ok := f.loops[node]
	return n, ok
}

func (f *Frame) findStart() (*domain.Node, bool) {
	for _, id := range f.order {
		if n := f.nodes[id]; n.Kind.Normalize() == domain.KindStart {
			return n, true
		}
	}
	return nil, false
}

// Run is the execution state of one top-level run.
// Frames, loop stack and outputs are owned by the goroutine walking the graph;
// only the wait registry is touched from other goroutines.
type Run struct {
	ID string

	frames    []*Frame
	loopStack []LoopEntry
	waits     *WaitRegistry
	nextScope int
}

// NewRun creates empty execution state.
func NewRun(id string) *Run {
	return &Run{
		ID:    id,
		waits: NewWaitRegistry(),
	}
}

// NewFrame builds a frame for nodes and allocates its scope id.
// The first frame of a run gets scope 0. Duplicate node ids keep the first occurrence.
func (r *Run) NewFrame(script string, nodes []domain.Node) *Frame {
	f := &Frame{
		Scope:   r.nextScope,
		Script:  script,
		nodes:   make(map[domain.NodeID]*domain.Node, len(nodes)),
		order:   make([]domain.NodeID, 0, len(nodes)),
		loops:   make(map[domain.NodeID]int),
		outputs: make(map[domain.NodeID]map[int]any),
	}
	r.nextScope++
	for i := range nodes {
		n := nodes[i]
		if _, dup := f.nodes[n.ID]; dup {
			continue
		}
		f.nodes[n.ID] = &n
		f.order = append(f.order, n.ID)
	}
	return f
}

// Waits returns the run's wait registry.
func (r *Run) Waits() *WaitRegistry {
	return r.waits
}

// Depth is the number of frames currently on the call stack.
func (r *Run) Depth() int {
	return len(r.frames)
}

// Frame returns the innermost frame, or nil when no graph is executing.
func (r *Run) Frame() *Frame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// LoopStack returns a copy of the open loops, innermost last.
func (r *Run) LoopStack() []LoopEntry {
	return append([]LoopEntry(nil), r.loopStack...)
}

func (r *Run) pushFrame(f *Frame) {
	r.frames = append(r.frames, f)
}

// popFrame removes f and drops every loop entry it left open.
func (r *Run) popFrame(f *Frame) {
	if n := len(r.frames); n > 0 && r.frames[n-1] == f {
		r.frames = r.frames[:n-1]
	}
	kept := r.loopStack[:0]
	for _, e := range r.loopStack {
		if e.Scope != f.Scope {
			kept = append(kept, e)
		}
	}
	r.loopStack = kept
}

func (r *Run) pushLoop(e LoopEntry) {
	r.loopStack = append(r.loopStack, e)
}

func (r *Run) topLoop() (LoopEntry, bool) {
	if len(r.loopStack) == 0 {
		return LoopEntry{}, false
	}
	return r.loopStack[len(r.loopStack)-1], true
}

func (r *Run) popLoop() {
	if len(r.loopStack) > 0 {
		r.loopStack = r.loopStack[:len(r.loopStack)-1]
	}
}

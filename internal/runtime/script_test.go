package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript_FrameIsolation(t *testing.T) {
	h := newHarness(t)
	h.recognizer.matches["main.png"] = domain.Point{X: 50, Y: 60}
	h.recognizer.matches["child.png"] = domain.Point{X: 7, Y: 8}

	boundClick := func(id, src domain.NodeID) domain.Node {
		return domain.Node{ID: id, Kind: domain.KindClick, Inputs: map[string]domain.InputBinding{
			"X": {Node: src, Slot: runtime.SlotX},
			"Y": {Node: src, Slot: runtime.SlotY},
		}}
	}

	// Both graphs use ids 1..3 so any leak between frames would show up in the taps.
	child3 := boundClick("3", "2")
	h.store["child"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindFindImage, Properties: props("template", "child.png"), NextFound: "3"},
		child3,
	}
	main4 := boundClick("4", "2")
	_, frame, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindFindImage, Properties: props("template", "main.png"), NextFound: "3"},
		{ID: "3", Kind: domain.KindScript, Properties: props("scriptName", "child"), Next: "4"},
		main4,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Point{{X: 7, Y: 8}, {X: 50, Y: 60}}, h.device.Taps())

	x, _ := frame.Output("2", runtime.SlotX)
	assert.Equal(t, 50, x, "caller outputs untouched by the callee")
}

func TestScript_LoopStateRestoredAfterCall(t *testing.T) {
	h := newHarness(t)
	h.store["inner"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 2), NextBody: "3"},
		{ID: "3", Kind: domain.KindClick},
	}

	run, frame, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 3), NextBody: "3", NextExit: "4"},
		{ID: "3", Kind: domain.KindScript, Properties: props("scriptName", "inner")},
		{ID: "4", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Len(t, h.device.Taps(), 6)
	assert.Equal(t, []int{3}, h.device.Keys())
	assert.Empty(t, run.LoopStack())
	_, active := frame.LoopRemaining("2")
	assert.False(t, active)
}

func TestScript_MissingOrEmptyContinues(t *testing.T) {
	h := newHarness(t)
	h.store["empty"] = []domain.Node{}

	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindScript, Properties: props("scriptName", "nope"), Next: "3"},
		{ID: "3", Kind: domain.KindScript, Next: "4"},
		{ID: "4", Kind: domain.KindScript, Properties: props("scriptName", "empty"), Next: "5"},
		{ID: "5", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, h.device.Keys())
}

func TestScript_CalleeWithoutStartFailsRun(t *testing.T) {
	h := newHarness(t)
	h.store["headless"] = []domain.Node{{ID: "1", Kind: domain.KindClick}}

	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindScript, Properties: props("scriptName", "headless"), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})
	se := requireStructural(t, err, domain.ErrNoStartNode)
	assert.Equal(t, "headless", se.Script)
	assert.Empty(t, h.device.Keys())
}

func TestScript_RecursionLimit(t *testing.T) {
	h := newHarness(t, runtime.WithMaxDepth(4))
	h.store["self"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindClick, Next: "3"},
		{ID: "3", Kind: domain.KindScript, Properties: props("scriptName", "self")},
	}

	run, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindScript, Properties: props("scriptName", "self")},
	})
	requireStructural(t, err, domain.ErrRecursionLimit)
	assert.Len(t, h.device.Taps(), 4)
	assert.Zero(t, run.Depth())
}

func TestScript_WaitCommandsScopedToCall(t *testing.T) {
	h := newHarness(t)
	outer := domain.StartSubgraph("9")
	h.commands.Register("continue", outer)

	h.store["gate"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordWait, Properties: props("command_name", "/continue"), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	}

	run := runtime.NewRun("gate-run")
	frame := run.NewFrame("", []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindScript, Properties: props("scriptName", "gate"), Next: "3"},
		{ID: "3", Kind: domain.KindClearApps},
	})

	done := make(chan error, 1)
	go func() { done <- h.engine.Execute(context.Background(), run, frame, "") }()

	want := domain.SignalWait(1, "2")
	require.Eventually(t, func() bool {
		action, ok := h.commands.Lookup("continue")
		return ok && action == want && run.Waits().Waiting(runtime.WaitKey{Scope: 1, Node: "2"})
	}, time.Second, 5*time.Millisecond)

	assert.False(t, run.Waits().Signal(runtime.WaitKey{Scope: 0, Node: "2"}), "caller's node 2 is not waiting")
	assert.True(t, run.Waits().Signal(runtime.WaitKey{Scope: want.Scope, Node: want.Node}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("walk did not resume")
	}

	assert.Equal(t, []int{3, 187}, h.device.Keys())
	action, ok := h.commands.Lookup("continue")
	require.True(t, ok)
	assert.Equal(t, outer, action, "shadowed hook restored after the call")
}

func TestScript_WaitCommandsRemovedOnFailure(t *testing.T) {
	h := newHarness(t)
	h.store["broken"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindClick, Next: "404"},
		{ID: "5", Kind: domain.KindDiscordWait, Properties: props("command_name", "resume")},
	}

	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindScript, Properties: props("scriptName", "broken")},
	})
	requireStructural(t, err, domain.ErrDanglingSuccessor)
	_, ok := h.commands.Lookup("resume")
	assert.False(t, ok)
}

func TestWaitCommand(t *testing.T) {
	assert.Equal(t, "continue", runtime.WaitCommand(&domain.Node{}))
	assert.Equal(t, "go", runtime.WaitCommand(&domain.Node{Properties: props("command_name", " /go ")}))
	assert.Equal(t, "continue", runtime.WaitCommand(&domain.Node{Properties: props("command_name", "/")}))
}

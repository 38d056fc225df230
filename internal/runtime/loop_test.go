package runtime_test

import (
	"context"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_CountedIterations(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		taps  int
	}{
		{"explicit count", props("count", 4), 4},
		{"default count", nil, 3},
		{"string count", props("count", "2"), 2},
		{"single", props("count", 1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			run, _, err := h.exec(t, []domain.Node{
				{ID: "1", Kind: domain.KindStart, Next: "2"},
				{ID: "2", Kind: domain.KindLoop, Properties: tt.props, NextBody: "3", NextExit: "4"},
				{ID: "3", Kind: domain.KindClick},
				{ID: "4", Kind: domain.KindHome},
			})
			require.NoError(t, err)
			assert.Len(t, h.device.Taps(), tt.taps)
			assert.Equal(t, []int{3}, h.device.Keys(), "exit taken exactly once")
			assert.Empty(t, run.LoopStack())
		})
	}
}

func TestLoop_InfiniteUntilBreak(t *testing.T) {
	visits := 0
	counter := runtime.HandlerFunc(func(_ context.Context, node *domain.Node, _ *runtime.Run) (domain.NodeID, error) {
		visits++
		if visits < 7 {
			return "", nil
		}
		return node.Next, nil
	})
	h := newHarness(t, runtime.WithHandler("counter", counter))

	run, frame, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 0), NextBody: "3", NextExit: "5"},
		{ID: "3", Kind: "counter", Next: "4"},
		{ID: "4", Kind: domain.KindLoopBreak},
		{ID: "5", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, visits)
	assert.Equal(t, []int{3}, h.device.Keys())
	assert.Empty(t, run.LoopStack())
	_, active := frame.LoopRemaining("2")
	assert.False(t, active, "break clears the loop counter")
}

func TestLoop_NestedAutoReturn(t *testing.T) {
	h := newHarness(t)
	run, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 2), NextBody: "3", NextExit: "5"},
		{ID: "3", Kind: domain.KindLoop, Properties: props("count", 3), NextBody: "4"},
		{ID: "4", Kind: domain.KindClick},
		{ID: "5", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Len(t, h.device.Taps(), 6)
	assert.Equal(t, []int{3}, h.device.Keys())
	assert.Empty(t, run.LoopStack())
}

func TestLoop_ReenteredAfterExitStartsFresh(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 2), NextBody: "3", NextExit: "4"},
		{ID: "3", Kind: domain.KindLoop, Properties: props("count", 2), NextBody: "5"},
		{ID: "4", Kind: domain.KindHome},
		{ID: "5", Kind: domain.KindClick},
	})
	require.NoError(t, err)
	assert.Len(t, h.device.Taps(), 4, "inner loop restarts its count on every outer iteration")
}

func TestLoopBreak_PopsOnlyInnermost(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 2), NextBody: "3", NextExit: "6"},
		{ID: "3", Kind: domain.KindLoop, Properties: props("count", 0), NextBody: "4", NextExit: "5"},
		{ID: "4", Kind: domain.KindLoopBreak},
		{ID: "5", Kind: domain.KindClick},
		{ID: "6", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Len(t, h.device.Taps(), 2, "inner exit runs once per outer iteration")
	assert.Equal(t, []int{3}, h.device.Keys())
}

func TestLoopBreak_OutsideLoopContinues(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoopBreak, Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, h.device.Keys())
}

func TestLoopBreak_CannotCrossScriptBoundary(t *testing.T) {
	h := newHarness(t)
	h.store["breaker"] = []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoopBreak},
	}

	run, _, err := h.exec(t, []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindLoop, Properties: props("count", 5), NextBody: "3", NextExit: "4"},
		{ID: "3", Kind: domain.KindScript, Properties: props("scriptName", "breaker")},
		{ID: "4", Kind: domain.KindHome},
	})
	se := requireStructural(t, err, domain.ErrLoopBreakOutOfScope)
	assert.Equal(t, "breaker", se.Script)
	assert.Empty(t, h.device.Keys())
	assert.Empty(t, run.LoopStack())
	assert.Zero(t, run.Depth())
}

package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitGraph() []domain.Node {
	return []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindDiscordWait, Properties: props("command_name", "continue"), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	}
}

func startWalk(ctx context.Context, t *testing.T, h *harness, nodes []domain.Node) (*runtime.Run, <-chan error) {
	t.Helper()
	run := runtime.NewRun("wait-run")
	frame := run.NewFrame("", nodes)
	done := make(chan error, 1)
	go func() { done <- h.engine.Execute(ctx, run, frame, "") }()
	require.Eventually(t, func() bool { return run.Waits().Len() == 1 }, time.Second, 5*time.Millisecond)
	return run, done
}

func awaitWalk(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("walk did not finish")
		return nil
	}
}

func TestDiscordWait_ResumedBySignal(t *testing.T) {
	h := newHarness(t)
	run, done := startWalk(context.Background(), t, h, waitGraph())

	key := runtime.WaitKey{Scope: 0, Node: "2"}
	assert.True(t, run.Waits().Waiting(key))
	assert.True(t, run.Waits().Signal(key))

	require.NoError(t, awaitWalk(t, done))
	assert.Equal(t, []int{3}, h.device.Keys())
	assert.Zero(t, run.Waits().Len())
	assert.False(t, run.Waits().Signal(key), "signals are not queued once the node has resumed")
}

func TestDiscordWait_CancelledStopsRun(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	run, done := startWalk(ctx, t, h, waitGraph())

	cancel()
	err := awaitWalk(t, done)
	assert.ErrorIs(t, err, domain.ErrStopped)
	assert.Empty(t, h.device.Keys(), "successor not taken after cancellation")
	assert.Zero(t, run.Waits().Len())
}

func TestWaitNode_NotInterruptedMidSleep(t *testing.T) {
	h := newHarness(t, runtime.WithSleeper(time.Sleep))
	ctx, cancel := context.WithCancel(context.Background())

	run := runtime.NewRun("sleep-run")
	frame := run.NewFrame("", []domain.Node{
		{ID: "1", Kind: domain.KindStart, Next: "2"},
		{ID: "2", Kind: domain.KindWait, Properties: props("seconds", 0.2), Next: "3"},
		{ID: "3", Kind: domain.KindHome},
	})

	time.AfterFunc(20*time.Millisecond, cancel)
	began := time.Now()
	err := h.engine.Execute(ctx, run, frame, "")

	assert.ErrorIs(t, err, domain.ErrStopped)
	assert.GreaterOrEqual(t, time.Since(began), 200*time.Millisecond)
	assert.Empty(t, h.device.Keys())
}

func TestWaitRegistry_StaleHandle(t *testing.T) {
	w := runtime.NewWaitRegistry()
	key := runtime.WaitKey{Scope: 2, Node: "7"}

	first := w.Register(key)
	second := w.Register(key)
	assert.Equal(t, 1, w.Len())

	w.Remove(key, first)
	assert.True(t, w.Waiting(key), "removing a replaced handle keeps the current one")

	assert.True(t, w.Signal(key))
	select {
	case <-second.Done():
	default:
		t.Fatal("current handle not signalled")
	}
	select {
	case <-first.Done():
		t.Fatal("stale handle signalled")
	default:
	}

	second.Signal()
	w.Remove(key, second)
	assert.False(t, w.Waiting(key))
}

func TestAwait(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		assert.NoError(t, runtime.Await(resolved(nil), time.Second))
	})

	t.Run("failed", func(t *testing.T) {
		boom := errors.New("boom")
		assert.ErrorIs(t, runtime.Await(resolved(boom), time.Second), boom)
	})

	t.Run("closed without value", func(t *testing.T) {
		ch := make(chan error)
		close(ch)
		assert.NoError(t, runtime.Await(ch, time.Second))
	})

	t.Run("timeout", func(t *testing.T) {
		err := runtime.Await(make(chan error), 10*time.Millisecond)
		assert.ErrorIs(t, err, runtime.ErrCallTimeout)
	})
}

func resolved(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

package process

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Run(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("say", "sh", "-c", `echo "$0 $1"`)

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := runner.Run(context.Background(), "say", "hello", "world")
		require.NoError(t, err)
		assert.Equal(t, "hello world\n", string(out))
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Run(context.Background(), "hacker_script")
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("Arguments Are Not Shell Expanded", func(t *testing.T) {
		out, err := runner.Run(context.Background(), "say", "; rm -rf /", "$HOME")
		require.NoError(t, err)
		assert.Equal(t, "; rm -rf / $HOME\n", string(out))
	})
}

func TestRunner_Failure(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner(WithRegistry(map[string]ProcessConfig{
		"fail": {Command: "sh", Args: []string{"-c", "echo partial; echo broken >&2; exit 3"}},
	}))

	out, err := runner.Run(context.Background(), "fail")
	require.Error(t, err)
	assert.Equal(t, "partial\n", string(out))

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "broken", exitErr.Stderr)
	assert.Equal(t, "sh", exitErr.Command)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunner_Environment(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner(WithRegistry(map[string]ProcessConfig{
		"env": {
			Command:     "sh",
			Args:        []string{"-c", "echo $BBSCRIPT_TEST"},
			Environment: map[string]string{"BBSCRIPT_TEST": "SecretMessage"},
		},
	}))

	out, err := runner.Run(context.Background(), "env")
	require.NoError(t, err)
	assert.Equal(t, "SecretMessage\n", string(out))
}

func TestRunner_InlineExecution(t *testing.T) {
	skipOnWindows(t)

	strict := NewRunner()
	_, err := strict.Run(context.Background(), "sh", "-c", "true")
	assert.ErrorIs(t, err, ErrNotRegistered)

	inline := NewRunner(WithInlineExecution(true))
	out, err := inline.Run(context.Background(), "sh", "-c", "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))
}

func TestRunner_Registered(t *testing.T) {
	runner := NewRunner()
	runner.Register("b", "b")
	runner.Register("a", "a")
	assert.Equal(t, []string{"a", "b"}, runner.Registered())
}

func TestRunner_Cancelled(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("sleep", "sh", "-c", "sleep 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Run(ctx, "sleep")
	assert.Error(t, err)
}

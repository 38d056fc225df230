package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// ErrNotRegistered is returned when a command alias is not on the allow-list.
var ErrNotRegistered = errors.New("process not registered")

// Runner executes local processes.
// It follows a Strict Registry pattern (Allow-Listing): callers name an alias,
// and only aliases registered up front resolve to an executable.
type Runner struct {
	mu          sync.RWMutex
	registry    map[string]ProcessConfig
	allowInline bool
	baseDir     string
}

// ProcessConfig defines an allowed command execution.
type ProcessConfig struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"` // prepended to every call
	Environment map[string]string `yaml:"env" json:"env"`
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from configuration.
func WithRegistry(tools map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = tool
		}
	}
}

// WithInlineExecution lets unregistered aliases run as executables found on PATH.
func WithInlineExecution(allow bool) RunnerOption {
	return func(r *Runner) {
		r.allowInline = allow
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ProcessConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[name] = ProcessConfig{Command: command, Args: args}
}

// Registered returns the allow-listed aliases, sorted.
func (r *Runner) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) resolve(name string) (ProcessConfig, error) {
	r.mu.RLock()
	proc, ok := r.registry[name]
	r.mu.RUnlock()
	if ok {
		return proc, nil
	}
	if r.allowInline {
		return ProcessConfig{Command: name}, nil
	}
	return ProcessConfig{}, fmt.Errorf("%w: %s", ErrNotRegistered, name)
}

// Run executes the process registered as name with args appended to its default
// arguments, and returns its stdout. Arguments are passed straight to the process,
// never through a shell.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	proc, err := r.resolve(name)
	if err != nil {
		return nil, err
	}

	full := append(append([]string(nil), proc.Args...), args...)
	cmd := exec.CommandContext(ctx, proc.Command, full...)
	cmd.Dir = r.baseDir
	if len(proc.Environment) > 0 {
		env := cmd.Environ()
		for k, v := range proc.Environment {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &ExitError{
			Command: proc.Command,
			Args:    full,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// ExitError describes a process that could not start or exited unsuccessfully.
type ExitError struct {
	Command string
	Args    []string
	Stderr  string
	Err     error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Command, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

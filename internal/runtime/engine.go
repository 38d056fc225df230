package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
)

// Defaults for the engine's timing knobs.
const (
	DefaultMaxDepth             = 10
	DefaultYield                = 10 * time.Millisecond
	DefaultPollInterval         = time.Second
	DefaultLocateTimeout        = 3 * time.Second
	DefaultMultiLocateTimeout   = time.Second
	DefaultSendTimeout          = 15 * time.Second
	DefaultScreenshotTimeout    = 20 * time.Second
	DefaultScreenshotAttachment = "screenshot.png"
)

// Handler executes one node kind. It returns the successor id (empty when the
// branch ends) or an error that aborts the walk. Collaborator failures are
// logged by the handler and never returned.
type Handler interface {
	Execute(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error)

func (f HandlerFunc) Execute(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	return f(ctx, node, run)
}

// CommandTable is where script calls register the commands of their discord_wait nodes.
type CommandTable interface {
	Register(name string, action domain.CommandAction) (prev domain.CommandAction, replaced bool)
	Unregister(name string)
}

// Engine walks compiled graphs.
type Engine struct {
	handlers map[domain.Kind]Handler

	store      ports.ScriptStore
	device     ports.Device
	recognizer ports.Recognizer
	messenger  ports.Messenger
	templates  ports.TemplateResolver
	commands   CommandTable
	compiler   *compiler.Compiler

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	sleep  func(time.Duration)

	maxDepth           int
	yield              time.Duration
	pollInterval       time.Duration
	locateTimeout      time.Duration
	multiLocateTimeout time.Duration
	sendTimeout        time.Duration
	screenshotTimeout  time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithScriptStore sets where script nodes load their subgraphs from.
func WithScriptStore(store ports.ScriptStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithDevice sets the device collaborator.
func WithDevice(device ports.Device) EngineOption {
	return func(e *Engine) {
		e.device = device
	}
}

// WithRecognizer sets the recognition collaborator.
func WithRecognizer(r ports.Recognizer) EngineOption {
	return func(e *Engine) {
		e.recognizer = r
	}
}

// WithMessenger sets the messaging collaborator.
func WithMessenger(m ports.Messenger) EngineOption {
	return func(e *Engine) {
		e.messenger = m
	}
}

// WithTemplateResolver sets how template references are mapped to image paths.
func WithTemplateResolver(r ports.TemplateResolver) EngineOption {
	return func(e *Engine) {
		e.templates = r
	}
}

// WithCommandTable sets the table script calls register their wait commands in.
func WithCommandTable(t CommandTable) EngineOption {
	return func(e *Engine) {
		e.commands = t
	}
}

// WithHandler registers (or replaces) the handler of a kind.
func WithHandler(kind domain.Kind, h Handler) EngineOption {
	return func(e *Engine) {
		e.handlers[kind.Normalize()] = h
	}
}

// WithSleeper replaces time.Sleep for wait nodes.
func WithSleeper(sleep func(time.Duration)) EngineOption {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// WithMaxDepth sets the recursion ceiling for script calls.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithYield sets the pause between two steps.
func WithYield(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.yield = d
	}
}

// WithPollInterval sets how often a suspended node re-checks cancellation.
func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.pollInterval = d
	}
}

// WithLocateTimeouts sets the recognition timeouts for find_image and for each
// template of find_multi_images.
func WithLocateTimeouts(single, perTemplate time.Duration) EngineOption {
	return func(e *Engine) {
		e.locateTimeout = single
		e.multiLocateTimeout = perTemplate
	}
}

// WithMessageTimeouts bounds the wait on the messaging actor for text and screenshot sends.
func WithMessageTimeouts(send, screenshot time.Duration) EngineOption {
	return func(e *Engine) {
		e.sendTimeout = send
		e.screenshotTimeout = screenshot
	}
}

// NewEngine creates an engine with the built-in handler set.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		handlers:           make(map[domain.Kind]Handler),
		logger:             logging.NewNop(),
		sleep:              time.Sleep,
		maxDepth:           DefaultMaxDepth,
		yield:              DefaultYield,
		pollInterval:       DefaultPollInterval,
		locateTimeout:      DefaultLocateTimeout,
		multiLocateTimeout: DefaultMultiLocateTimeout,
		sendTimeout:        DefaultSendTimeout,
		screenshotTimeout:  DefaultScreenshotTimeout,
	}
	e.registerBuiltins()
	for _, opt := range opts {
		opt(e)
	}
	if e.compiler == nil {
		e.compiler = compiler.New(compiler.WithLogger(e.logger))
	}
	return e
}

// Execute walks frame from start (or from its first start node when start is empty)
// until a branch ends with no loop to return to. The frame is pushed for the
// duration of the walk and popped on every exit path, closing any loop it left open.
//
// It returns nil on normal completion, domain.ErrStopped when ctx is cancelled,
// and a *StructuralError (or a wrapped domain.ErrHandlerPanic) on failure.
func (e *Engine) Execute(ctx context.Context, run *Run, frame *Frame, start domain.NodeID) error {
	depth := run.Depth()
	if depth > e.maxDepth {
		return &StructuralError{Script: frame.Script, Err: domain.ErrRecursionLimit}
	}
	if ctx.Err() != nil {
		return domain.ErrStopped
	}

	logger := e.logger.With("run_id", run.ID, "script", frame.Script, "depth", depth)

	var current *domain.Node
	if !start.IsZero() {
		n, ok := frame.Node(start)
		if !ok {
			return &StructuralError{Script: frame.Script, NodeID: start, Err: domain.ErrStartNodeNotFound}
		}
		current = n
	} else {
		n, ok := frame.findStart()
		if !ok {
			return &StructuralError{Script: frame.Script, Err: domain.ErrNoStartNode}
		}
		current = n
	}

	run.pushFrame(frame)
	defer run.popFrame(frame)

	for current != nil {
		if ctx.Err() != nil {
			return domain.ErrStopped
		}

		next, err := e.step(ctx, run, frame, current, logger)
		if err != nil {
			return err
		}

		if next.IsZero() {
			if top, ok := run.topLoop(); ok && top.Scope == frame.Scope {
				logger.Debug("Auto-loop return", "loop", top.Node)
				next = top.Node
			}
		}
		if next.IsZero() {
			return nil
		}

		n, ok := frame.Node(next)
		if !ok {
			return &StructuralError{Script: frame.Script, NodeID: next, Err: domain.ErrDanglingSuccessor}
		}
		current = n

		if e.yield > 0 {
			time.Sleep(e.yield)
		}
	}
	return nil
}

func (e *Engine) step(ctx context.Context, run *Run, frame *Frame, node *domain.Node, logger *slog.Logger) (next domain.NodeID, err error) {
	kind := node.Kind.Normalize()
	began := time.Now()
	e.emitNodeEnter(ctx, run, frame, node)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Node handler panicked", "node", node.ID, "kind", kind, "panic", r)
			next, err = "", fmt.Errorf("%w: node %s (%s): %v", domain.ErrHandlerPanic, node.ID, kind, r)
		}
		e.emitNodeLeave(ctx, run, frame, node, next, time.Since(began))
	}()

	h, ok := e.handlers[kind]
	if !ok {
		logger.Warn("Unknown node type", "node", node.ID, "kind", node.Kind)
		return node.Next, nil
	}
	return h.Execute(ctx, node, run)
}

func (e *Engine) emitNodeEnter(ctx context.Context, run *Run, frame *Frame, node *domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, RunID: run.ID},
		NodeID:    node.ID,
		Kind:      node.Kind.Normalize(),
		Script:    frame.Script,
		Depth:     run.Depth() - 1,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, run *Run, frame *Frame, node *domain.Node, next domain.NodeID, d time.Duration) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, RunID: run.ID},
		NodeID:    node.ID,
		Kind:      node.Kind.Normalize(),
		Script:    frame.Script,
		Depth:     run.Depth() - 1,
		Next:      next,
		Duration:  d,
	})
}

// nodeLogger scopes the engine logger to one node of the current frame.
func (e *Engine) nodeLogger(run *Run, node *domain.Node) *slog.Logger {
	l := e.logger.With("run_id", run.ID, "node", node.ID, "kind", node.Kind.Normalize())
	if f := run.Frame(); f != nil && f.Script != "" {
		l = l.With("script", f.Script)
	}
	return l
}

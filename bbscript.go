package bbscript

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// Engine is the high-level entry point of the library.
// It wraps the internal runtime, the graph compiler and the command registry.
type Engine struct {
	runtime     *runtime.Engine
	compiler    *compiler.Compiler
	commands    *registry.Registry
	store       ports.ScriptStore
	templates   ports.TemplateResolver
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where scripts are loaded from, both for top-level runs and script nodes.
func WithStore(store ports.ScriptStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithDevice sets the device the graph drives.
func WithDevice(device ports.Device) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDevice(device))
	}
}

// WithRecognizer sets the image recognition collaborator.
func WithRecognizer(r ports.Recognizer) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRecognizer(r))
	}
}

// WithMessenger sets the direct-message collaborator.
func WithMessenger(m ports.Messenger) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMessenger(m))
	}
}

// WithTemplateResolver sets how template references are mapped to image paths.
// When unset, a store that also implements ports.TemplateResolver is used.
func WithTemplateResolver(r ports.TemplateResolver) Option {
	return func(e *Engine) {
		e.templates = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxDepth sets how deep script nodes may nest.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxDepth(depth))
	}
}

// WithYield sets the pause between two node steps.
func WithYield(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithYield(d))
	}
}

// WithPollInterval sets how often a suspended discord_wait re-checks for a stop request.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithPollInterval(d))
	}
}

// WithSleeper replaces time.Sleep for wait nodes.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSleeper(sleep))
	}
}

// New initializes an Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		commands: registry.NewRegistry(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.templates == nil {
		if r, ok := eng.store.(ports.TemplateResolver); ok {
			eng.templates = r
		}
	}
	eng.compiler = compiler.New(compiler.WithLogger(eng.logger))

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithScriptStore(eng.store),
		runtime.WithCommandTable(eng.commands),
	}
	if eng.templates != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTemplateResolver(eng.templates))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(runtimeOpts...)
	return eng
}

// Commands returns the registry mapping command names to actions.
func (e *Engine) Commands() *registry.Registry {
	return e.commands
}

// Store returns the script store, or nil when none is configured.
func (e *Engine) Store() ports.ScriptStore {
	return e.store
}

// Hooks returns the lifecycle hooks the engine was configured with.
func (e *Engine) Hooks() domain.LifecycleHooks {
	return e.hooks
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Compile converts a stored graph description into node records.
func (e *Engine) Compile(data []byte) ([]domain.Node, error) {
	return compiler.Parse(data)
}

// LoadScript reads a script from the store and compiles it.
func (e *Engine) LoadScript(ctx context.Context, name string) ([]domain.Node, error) {
	if e.store == nil {
		return nil, fmt.Errorf("load script %q: %w", name, domain.ErrScriptNotFound)
	}
	raw, err := e.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load script %q: %w", name, err)
	}
	nodes, err := compiler.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("compile script %q: %w", name, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("script %q: %w", name, domain.ErrEmptyScript)
	}
	return nodes, nil
}

// NewSession creates fresh execution state for walking nodes as a top-level graph.
func (e *Engine) NewSession(runID, script string, nodes []domain.Node) *Session {
	run := runtime.NewRun(runID)
	return &Session{
		engine: e,
		run:    run,
		frame:  run.NewFrame(script, nodes),
		nodes:  append([]domain.Node(nil), nodes...),
	}
}

// Session is one top-level graph with its own execution state.
// Walk must not be called concurrently; Signal and Waiting are safe from any goroutine.
type Session struct {
	engine *Engine
	run    *runtime.Run
	frame  *runtime.Frame
	nodes  []domain.Node
}

// RunID returns the id the session logs and emits events under.
func (s *Session) RunID() string {
	return s.run.ID
}

// Scope is the scope id of the top-level graph; wait commands of top-level nodes use it.
func (s *Session) Scope() int {
	return s.frame.Scope
}

// Nodes returns the top-level node records.
func (s *Session) Nodes() []domain.Node {
	return s.nodes
}

// Walk executes the graph from start, or from its first start node when start is empty.
// It returns nil on completion, an error matching domain.ErrStopped when ctx is cancelled,
// and any other error when the walk failed.
func (s *Session) Walk(ctx context.Context, start domain.NodeID) error {
	return s.engine.runtime.Execute(ctx, s.run, s.frame, start)
}

// Signal resumes the discord_wait node suspended under (scope, node).
// It reports false when that node is not currently waiting.
func (s *Session) Signal(scope int, node domain.NodeID) bool {
	return s.run.Waits().Signal(runtime.WaitKey{Scope: scope, Node: node})
}

// Waiting reports whether (scope, node) is currently suspended.
func (s *Session) Waiting(scope int, node domain.NodeID) bool {
	return s.run.Waits().Waiting(runtime.WaitKey{Scope: scope, Node: node})
}

// WaitCommand returns the command name a discord_wait node answers to.
func WaitCommand(node *domain.Node) string {
	return runtime.WaitCommand(node)
}

// IsStopped reports whether err is a cancellation outcome rather than a failure.
func IsStopped(err error) bool {
	return runtime.IsStopped(err)
}

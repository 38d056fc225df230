package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bbscript "github.com/Superfang0726/Better-BlueStacks-Script"
	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
	"github.com/google/uuid"
)

// topScope is the scope id of the first frame of every session.
const topScope = 0

// Defaults for the device lease.
const (
	DefaultLeaseTTL  = 12 * time.Hour
	DefaultLeaseWait = 5 * time.Second
)

// Supervisor owns top-level runs: at most one is active at a time.
// It registers the commands of the run's entry and wait nodes, interprets
// dispatched commands, and turns the outcome of the walk into a run status.
type Supervisor struct {
	engine   *bbscript.Engine
	commands *registry.Registry
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	newRunID func() string

	locker    ports.DistributedLocker
	leaseKey  string
	leaseTTL  time.Duration
	leaseWait time.Duration

	mu      sync.Mutex
	current *activeRun
	last    domain.RunInfo
}

// activeRun is guarded by Supervisor.mu.
type activeRun struct {
	info   domain.RunInfo
	nodes  []domain.Node
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	unlock ports.UnlockFunc

	// session is the walk currently executing, nil between slash walks.
	session  *bbscript.Session
	walkDone chan struct{}
}

// Option defines a functional option for configuring the Supervisor.
type Option func(*Supervisor)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks adds run and command hooks on top of the engine's hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Supervisor) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithLocker leases key (usually the device address) for the duration of every run.
func WithLocker(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(s *Supervisor) {
		s.locker = locker
		s.leaseKey = key
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

// WithLeaseWait bounds how long Start waits for the device lease.
func WithLeaseWait(d time.Duration) Option {
	return func(s *Supervisor) {
		s.leaseWait = d
	}
}

// WithRunIDGenerator replaces the uuid run id generator.
func WithRunIDGenerator(gen func() string) Option {
	return func(s *Supervisor) {
		s.newRunID = gen
	}
}

// NewSupervisor creates a supervisor for engine.
func NewSupervisor(engine *bbscript.Engine, opts ...Option) *Supervisor {
	s := &Supervisor{
		engine:    engine,
		commands:  engine.Commands(),
		hooks:     engine.Hooks(),
		logger:    engine.Logger(),
		newRunID:  uuid.NewString,
		leaseTTL:  DefaultLeaseTTL,
		leaseWait: DefaultLeaseWait,
		last:      domain.RunInfo{Status: domain.StatusIdle},
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads a stored script and starts it in the background.
func (s *Supervisor) Start(ctx context.Context, script string) (domain.RunInfo, error) {
	nodes, err := s.engine.LoadScript(ctx, script)
	if err != nil {
		return domain.RunInfo{}, err
	}
	return s.StartNodes(ctx, script, nodes)
}

// StartNodes starts a compiled graph in the background.
//
// A graph with a start node runs until that walk ends. A graph with only
// discord_slash entry points listens: each slash command starts a walk at its
// node, one walk at a time, until Stop is called. The run outlives ctx, which
// only bounds the lease acquisition.
func (s *Supervisor) StartNodes(ctx context.Context, script string, nodes []domain.Node) (domain.RunInfo, error) {
	start, hasStart := bbscript.StartNode(nodes)
	if !hasStart && len(bbscript.SlashEntries(nodes)) == 0 {
		return domain.RunInfo{}, fmt.Errorf("script %q: %w", script, domain.ErrNoStartNode)
	}

	r := &activeRun{
		info:  domain.RunInfo{Script: script, Status: domain.StatusIdle},
		nodes: nodes,
		done:  make(chan struct{}),
	}
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return domain.RunInfo{}, domain.ErrRunInProgress
	}
	s.current = r
	s.mu.Unlock()

	unlock, err := s.lease(ctx)
	if err != nil {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return domain.RunInfo{}, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	id := s.newRunID()
	logger := s.logger.With("run_id", id, "script", script)

	s.registerHooks(nodes, logger)

	s.mu.Lock()
	r.ctx, r.cancel, r.unlock = runCtx, cancel, unlock
	r.info.ID = id
	r.info.StartedAt = time.Now()
	if hasStart {
		r.info.Status = domain.StatusRunning
		r.session = s.engine.NewSession(id, script, nodes)
	} else {
		r.info.Status = domain.StatusListening
	}
	info := s.snapshot(r)
	session := r.session
	s.mu.Unlock()

	s.emitRunStart(runCtx, info)

	if hasStart {
		logger.Info("Script started", "start", start)
		go func() {
			s.finish(r, session.Walk(runCtx, start), logger)
		}()
	} else {
		logger.Info("Listening for slash commands", "commands", info.Commands)
		go s.listen(r, logger)
	}
	return info, nil
}

// Stop cancels the active run. Suspended nodes observe it at their next poll;
// a node already inside a device call finishes that call first.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	r := s.current
	if r == nil || r.cancel == nil {
		s.mu.Unlock()
		return domain.ErrNoRunActive
	}
	cancel, id := r.cancel, r.info.ID
	s.mu.Unlock()

	s.logger.Info("Stop requested", "run_id", id)
	cancel()
	return nil
}

// Status returns a snapshot of the active run, or of the last one when idle.
func (s *Supervisor) Status() domain.RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.snapshot(s.current)
	}
	return s.last
}

// Wait blocks until the active run ends and returns its final snapshot.
func (s *Supervisor) Wait(ctx context.Context) (domain.RunInfo, error) {
	s.mu.Lock()
	r := s.current
	last := s.last
	s.mu.Unlock()
	if r == nil {
		return last, nil
	}
	select {
	case <-r.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return r.info, nil
	case <-ctx.Done():
		return domain.RunInfo{}, ctx.Err()
	}
}

// Dispatch delivers an external command to the active run.
// It is safe to call from any goroutine, typically a messaging event loop.
func (s *Supervisor) Dispatch(ctx context.Context, command string) domain.DispatchResult {
	name := registry.Normalize(command)
	result := s.dispatch(name)
	s.logger.Info("Command dispatched", "command", "/"+name, "result", result)
	if s.hooks.OnCommand != nil {
		s.hooks.OnCommand(ctx, &domain.CommandEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCommand, RunID: s.Status().ID},
			Command:   name,
			Result:    result,
		})
	}
	return result
}

func (s *Supervisor) dispatch(name string) domain.DispatchResult {
	action, ok := s.commands.Lookup(name)
	if !ok {
		return domain.DispatchUnknown
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.current
	if r == nil || r.ctx == nil || r.ctx.Err() != nil {
		return domain.DispatchUnknown
	}

	switch action.Kind {
	case domain.ActionSignalWait:
		if r.session != nil && r.session.Signal(action.Scope, action.Node) {
			return domain.DispatchHandled
		}
		return domain.DispatchNotWaiting
	case domain.ActionStartSubgraph:
		if r.session != nil {
			return domain.DispatchBusy
		}
		session := s.engine.NewSession(r.info.ID, r.info.Script, r.nodes)
		r.session = session
		r.walkDone = make(chan struct{})
		go s.slashWalk(r, session, action.Node, name)
		return domain.DispatchHandled
	}
	return domain.DispatchUnknown
}

// slashWalk runs one command-triggered walk with its own execution state.
func (s *Supervisor) slashWalk(r *activeRun, session *bbscript.Session, start domain.NodeID, command string) {
	logger := s.logger.With("run_id", r.info.ID, "script", r.info.Script, "command", "/"+command)
	logger.Info("Slash walk started", "start", start)

	err := session.Walk(r.ctx, start)
	switch {
	case err == nil:
		logger.Info("Slash walk finished")
	case bbscript.IsStopped(err):
		logger.Info("Slash walk stopped")
	default:
		logger.Error("Slash walk failed", "err", err)
	}

	s.mu.Lock()
	r.session = nil
	close(r.walkDone)
	r.walkDone = nil
	s.mu.Unlock()
}

// listen keeps a slash-only run alive until it is stopped and its last walk has returned.
func (s *Supervisor) listen(r *activeRun, logger *slog.Logger) {
	<-r.ctx.Done()
	s.mu.Lock()
	walking := r.walkDone
	s.mu.Unlock()
	if walking != nil {
		<-walking
	}
	s.finish(r, domain.ErrStopped, logger)
}

func (s *Supervisor) finish(r *activeRun, err error, logger *slog.Logger) {
	status := domain.StatusCompleted
	switch {
	case err == nil:
		logger.Info("Script finished")
	case bbscript.IsStopped(err):
		status = domain.StatusStopped
		logger.Info("Script stopped")
	default:
		status = domain.StatusFailed
		logger.Error("Script failed", "err", err)
	}

	s.commands.Clear()
	if r.unlock != nil {
		if uerr := r.unlock(context.Background()); uerr != nil {
			logger.Warn("Failed to release device lease", "err", uerr)
		}
	}

	s.mu.Lock()
	r.info.Status = status
	r.info.EndedAt = time.Now()
	if status == domain.StatusFailed {
		r.info.Error = err.Error()
	}
	r.info.Commands = nil
	r.session = nil
	info := r.info
	s.mu.Unlock()

	if s.hooks.OnRunEnd != nil {
		s.hooks.OnRunEnd(context.Background(), &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: info.EndedAt, Type: domain.EventRunEnd, RunID: info.ID},
			Script:    info.Script,
			Status:    status,
			Err:       err,
		})
	}

	s.mu.Lock()
	s.last = info
	s.current = nil
	s.mu.Unlock()

	r.cancel()
	close(r.done)
}

// registerHooks replaces the command table with the top-level hooks of nodes:
// slash entry points start a walk, wait nodes resume their node.
func (s *Supervisor) registerHooks(nodes []domain.Node, logger *slog.Logger) {
	s.commands.Clear()

	for _, n := range bbscript.SlashEntries(nodes) {
		cmd := registry.Normalize(n.StringProperty("command_name", ""))
		if cmd == "" {
			logger.Warn("Slash node has no command name, skipped", "node", n.ID)
			continue
		}
		if prev, replaced := s.commands.Register(cmd, domain.StartSubgraph(n.ID)); replaced {
			logger.Warn("Duplicate command, later node wins", "command", cmd, "previous", prev, "node", n.ID)
		}
		logger.Info("Registered slash command", "command", "/"+cmd, "node", n.ID)
	}

	for _, n := range bbscript.WaitNodes(nodes) {
		cmd := bbscript.WaitCommand(&n)
		if prev, replaced := s.commands.Register(cmd, domain.SignalWait(topScope, n.ID)); replaced {
			logger.Warn("Duplicate command, later node wins", "command", cmd, "previous", prev, "node", n.ID)
		}
		logger.Info("Registered wait command", "command", "/"+cmd, "node", n.ID)
	}
}

func (s *Supervisor) lease(ctx context.Context) (ports.UnlockFunc, error) {
	if s.locker == nil {
		return nil, nil
	}
	lctx, cancel := context.WithTimeout(ctx, s.leaseWait)
	defer cancel()
	unlock, err := s.locker.Lock(lctx, s.leaseKey, s.leaseTTL)
	if err != nil {
		return nil, fmt.Errorf("lease device %s: %w", s.leaseKey, err)
	}
	return unlock, nil
}

// snapshot must be called with s.mu held.
func (s *Supervisor) snapshot(r *activeRun) domain.RunInfo {
	info := r.info
	if info.Status.Active() {
		info.Commands = s.commands.Names()
	}
	return info
}

func (s *Supervisor) emitRunStart(ctx context.Context, info domain.RunInfo) {
	if s.hooks.OnRunStart == nil {
		return
	}
	s.hooks.OnRunStart(ctx, &domain.RunEvent{
		EventBase: domain.EventBase{Timestamp: info.StartedAt, Type: domain.EventRunStart, RunID: info.ID},
		Script:    info.Script,
		Status:    info.Status,
	})
}

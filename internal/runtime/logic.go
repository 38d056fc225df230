package runtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
)

type loopProps struct {
	Count int `prop:"count"`
}

type scriptProps struct {
	ScriptName string `prop:"scriptName"`
}

type waitCommandProps struct {
	CommandName string `prop:"command_name"`
}

// loop implements the counted/infinite loop head.
// First visit stores the count (0 = infinite) and pushes the loop; each later
// visit takes the body until the count is used up, then pops and exits.
func (e *Engine) loop(_ context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	frame := run.Frame()

	remaining, active := frame.loops[node.ID]
	if !active {
		p := loopProps{Count: 3}
		decodeProps(node, &p, logger)
		remaining = p.Count
		if remaining == 0 {
			remaining = infinite
		}
		frame.loops[node.ID] = remaining
		run.pushLoop(LoopEntry{Scope: frame.Scope, Node: node.ID})
		if remaining == infinite {
			logger.Info("Loop start", "count", "infinite")
		} else {
			logger.Info("Loop start", "count", remaining)
		}
	}

	switch {
	case remaining == infinite:
		return node.NextBody, nil
	case remaining > 0:
		frame.loops[node.ID] = remaining - 1
		logger.Debug("Looping", "left", remaining-1)
		return node.NextBody, nil
	default:
		logger.Info("Loop finished")
		if top, ok := run.topLoop(); ok && top == (LoopEntry{Scope: frame.Scope, Node: node.ID}) {
			run.popLoop()
		}
		delete(frame.loops, node.ID)
		return node.NextExit, nil
	}
}

// loopBreak leaves the innermost open loop through that loop's exit.
func (e *Engine) loopBreak(_ context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	frame := run.Frame()

	top, ok := run.topLoop()
	if !ok {
		logger.Warn("Break outside loop ignored")
		return node.Next, nil
	}
	if top.Scope != frame.Scope {
		return "", &StructuralError{Script: frame.Script, NodeID: node.ID, Err: domain.ErrLoopBreakOutOfScope}
	}
	loopNode, ok := frame.Node(top.Node)
	if !ok {
		return "", &StructuralError{Script: frame.Script, NodeID: top.Node, Err: domain.ErrLoopBreakOutOfScope}
	}

	run.popLoop()
	delete(frame.loops, top.Node)
	logger.Info("Loop break", "loop", top.Node)
	return loopNode.NextExit, nil
}

type hookBinding struct {
	command  string
	prev     domain.CommandAction
	replaced bool
}

// script calls another stored script on the same run, in a fresh frame.
// While it executes, the commands of its discord_wait nodes resolve to its own
// wait nodes; whatever they shadowed is restored on every exit path.
func (e *Engine) script(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := scriptProps{}
	decodeProps(node, &p, logger)

	if p.ScriptName == "" {
		logger.Warn("No script name provided")
		return node.Next, nil
	}
	if e.store == nil {
		logger.Warn("No script store attached", "target", p.ScriptName)
		return node.Next, nil
	}

	raw, err := e.store.Load(ctx, p.ScriptName)
	if err != nil {
		if errors.Is(err, domain.ErrScriptNotFound) {
			logger.Warn("Script not found", "target", p.ScriptName)
		} else {
			logger.Warn("Failed to load script", "target", p.ScriptName, "err", err)
		}
		return node.Next, nil
	}
	nodes := e.compiler.Compile(raw)
	if len(nodes) == 0 {
		logger.Warn("Script has no nodes", "target", p.ScriptName)
		return node.Next, nil
	}

	child := run.NewFrame(p.ScriptName, nodes)
	bindings := e.bindWaitCommands(child, logger)
	defer e.restoreCommands(bindings, logger)

	logger.Info("Starting sub-script", "target", p.ScriptName)
	if err := e.Execute(ctx, run, child, ""); err != nil {
		return "", err
	}
	logger.Info("Sub-script finished", "target", p.ScriptName)
	return node.Next, nil
}

func (e *Engine) bindWaitCommands(frame *Frame, logger *slog.Logger) []hookBinding {
	if e.commands == nil {
		return nil
	}
	var bindings []hookBinding
	for _, n := range frame.Nodes() {
		if n.Kind.Normalize() != domain.KindDiscordWait {
			continue
		}
		cmd := WaitCommand(n)
		prev, replaced := e.commands.Register(cmd, domain.SignalWait(frame.Scope, n.ID))
		if replaced {
			logger.Warn("Sub-script command overrides existing hook", "command", cmd)
		}
		logger.Info("Sub-script registered command", "command", cmd, "wait_node", n.ID)
		bindings = append(bindings, hookBinding{command: cmd, prev: prev, replaced: replaced})
	}
	return bindings
}

func (e *Engine) restoreCommands(bindings []hookBinding, logger *slog.Logger) {
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if b.replaced {
			e.commands.Register(b.command, b.prev)
		} else {
			e.commands.Unregister(b.command)
		}
		logger.Info("Unregistered sub-script command", "command", b.command)
	}
}

// WaitCommand returns the command a discord_wait node answers to.
func WaitCommand(node *domain.Node) string {
	p := waitCommandProps{}
	decodeProps(node, &p, logging.NewNop())
	if cmd := registry.Normalize(p.CommandName); cmd != "" {
		return cmd
	}
	return registry.DefaultCommand
}

package bbscript

import (
	"context"
	"fmt"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Run loads a stored script and walks it to completion from its start node.
// It ignores slash entry points; use runner.Supervisor for command-driven scripts.
func (e *Engine) Run(ctx context.Context, runID, name string) error {
	nodes, err := e.LoadScript(ctx, name)
	if err != nil {
		return err
	}
	if _, ok := StartNode(nodes); !ok {
		return fmt.Errorf("script %q: %w", name, domain.ErrNoStartNode)
	}

	e.logger.Info("Running script", "run_id", runID, "script", name, "nodes", len(nodes))
	err = e.NewSession(runID, name, nodes).Walk(ctx, "")
	switch {
	case err == nil:
		e.logger.Info("Script finished", "run_id", runID, "script", name)
	case IsStopped(err):
		e.logger.Info("Script stopped", "run_id", runID, "script", name)
	default:
		e.logger.Error("Script failed", "run_id", runID, "script", name, "err", err)
	}
	return err
}

// StartNode returns the id of the first start node.
func StartNode(nodes []domain.Node) (domain.NodeID, bool) {
	for i := range nodes {
		if nodes[i].Kind.Normalize() == domain.KindStart {
			return nodes[i].ID, true
		}
	}
	return "", false
}

// SlashEntries returns the discord_slash nodes of a graph, in graph order.
func SlashEntries(nodes []domain.Node) []domain.Node {
	var out []domain.Node
	for i := range nodes {
		if nodes[i].Kind.Normalize() == domain.KindDiscordSlash {
			out = append(out, nodes[i])
		}
	}
	return out
}

// WaitNodes returns the discord_wait nodes of a graph, in graph order.
func WaitNodes(nodes []domain.Node) []domain.Node {
	var out []domain.Node
	for i := range nodes {
		if nodes[i].Kind.Normalize() == domain.KindDiscordWait {
			out = append(out, nodes[i])
		}
	}
	return out
}

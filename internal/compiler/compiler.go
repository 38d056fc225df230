// Package compiler turns stored graph descriptions into flat, executable node records.
package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// ErrUnsupportedShape is returned for JSON that is neither an editor graph,
// an {actions:[...]} envelope nor a node list.
var ErrUnsupportedShape = errors.New("unsupported graph description")

// Compiler converts editor graphs into node records.
type Compiler struct {
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used to report decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile is the lenient form of Parse: a description that cannot be decoded
// yields no nodes and a logged warning.
func (c *Compiler) Compile(data []byte) []domain.Node {
	nodes, err := Parse(data)
	if err != nil {
		c.logger.Warn("Failed to compile graph", "err", err)
		return nil
	}
	return nodes
}

// Parse decodes a graph description. Accepted shapes:
//
//   - an editor graph {nodes:[...], links:[...]}, converted into node records
//   - an envelope {actions:[...]} holding node records, passed through
//   - a bare list of node records, passed through
//
// Any of them may be wrapped once in a JSON string.
func Parse(data []byte) ([]domain.Node, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}

	if s, ok := probe.(string); ok {
		data = []byte(s)
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decode string-wrapped graph: %w", err)
		}
	}

	switch v := probe.(type) {
	case map[string]any:
		_, hasNodes := v["nodes"]
		_, hasLinks := v["links"]
		if hasNodes && hasLinks {
			var g graph
			if err := json.Unmarshal(data, &g); err != nil {
				return nil, fmt.Errorf("decode editor graph: %w", err)
			}
			return convert(g), nil
		}
		if _, ok := v["actions"]; ok {
			var env struct {
				Actions []domain.Node `json:"actions"`
			}
			if err := json.Unmarshal(data, &env); err != nil {
				return nil, fmt.Errorf("decode actions: %w", err)
			}
			return env.Actions, nil
		}
	case []any:
		var nodes []domain.Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("decode node list: %w", err)
		}
		return nodes, nil
	}
	return nil, ErrUnsupportedShape
}

func convert(g graph) []domain.Node {
	// origin node -> output slot -> target node
	connections := make(map[domain.NodeID]map[int]domain.NodeID)
	byID := make(map[int64]link, len(g.Links))
	for _, l := range g.Links {
		if !l.valid {
			continue
		}
		byID[l.ID] = l
		slots, ok := connections[l.Origin]
		if !ok {
			slots = make(map[int]domain.NodeID)
			connections[l.Origin] = slots
		}
		slots[l.OriginSlot] = l.Target
	}

	nodes := make([]domain.Node, 0, len(g.Nodes))
	for _, gn := range g.Nodes {
		kind := domain.NormalizeKind(gn.Type)
		n := domain.Node{
			ID:         gn.ID,
			Kind:       kind,
			Properties: gn.Properties,
		}
		if n.Properties == nil {
			n.Properties = map[string]any{}
		}

		conns := connections[gn.ID]
		switch kind.Arity() {
		case domain.ArityLoop:
			n.NextBody = conns[0]
			n.NextExit = conns[1]
		case domain.ArityFound:
			n.NextFound = conns[0]
			n.NextNotFound = conns[1]
		default:
			n.Next = conns[0]
		}

		for _, in := range gn.Inputs {
			if in.Link == nil {
				continue
			}
			l, ok := byID[*in.Link]
			if !ok {
				continue
			}
			if n.Inputs == nil {
				n.Inputs = make(map[string]domain.InputBinding)
			}
			n.Inputs[in.Name] = domain.InputBinding{Node: l.Origin, Slot: l.OriginSlot}
		}

		nodes = append(nodes, n)
	}
	return nodes
}

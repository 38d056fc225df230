package dsl

import (
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/memory"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	order []domain.NodeID
	nodes map[domain.NodeID]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[domain.NodeID]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder unchanged.
func (b *Builder) Add(id domain.NodeID, kind domain.Kind) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:   id,
			Kind: kind,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build returns the node records in the order they were added.
func (b *Builder) Build() []domain.Node {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].node)
	}
	return nodes
}

// Store builds the graph into an in-memory script store under name.
func (b *Builder) Store(name string) (*memory.Store, error) {
	return memory.NewStoreFromNodes(map[string][]domain.Node{name: b.Build()})
}

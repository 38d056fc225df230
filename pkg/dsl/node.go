package dsl

import "github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Prop sets one entry of the node's property bag.
func (n *NodeBuilder) Prop(key string, value any) *NodeBuilder {
	if n.node.Properties == nil {
		n.node.Properties = make(map[string]any)
	}
	n.node.Properties[key] = value
	return n
}

// Then sets the single successor.
func (n *NodeBuilder) Then(target domain.NodeID) *NodeBuilder {
	n.node.Next = target
	return n
}

// Found sets the successor taken when a recognition node matches.
func (n *NodeBuilder) Found(target domain.NodeID) *NodeBuilder {
	n.node.NextFound = target
	return n
}

// NotFound sets the successor taken when a recognition node does not match.
func (n *NodeBuilder) NotFound(target domain.NodeID) *NodeBuilder {
	n.node.NextNotFound = target
	return n
}

// Body sets the first node of a loop body.
func (n *NodeBuilder) Body(target domain.NodeID) *NodeBuilder {
	n.node.NextBody = target
	return n
}

// Exit sets the node a loop continues with once it is done.
func (n *NodeBuilder) Exit(target domain.NodeID) *NodeBuilder {
	n.node.NextExit = target
	return n
}

// Input binds a named input to an output slot of another node.
func (n *NodeBuilder) Input(name string, source domain.NodeID, slot int) *NodeBuilder {
	if n.node.Inputs == nil {
		n.node.Inputs = make(map[string]domain.InputBinding)
	}
	n.node.Inputs[name] = domain.InputBinding{Node: source, Slot: slot}
	return n
}

// Add starts the next node; it lets a whole graph be declared in one chain.
func (n *NodeBuilder) Add(id domain.NodeID, kind domain.Kind) *NodeBuilder {
	return n.builder.Add(id, kind)
}

// Build returns the whole graph this node belongs to.
func (n *NodeBuilder) Build() []domain.Node {
	return n.builder.Build()
}

// Node returns the underlying domain.Node.
func (n *NodeBuilder) Node() domain.Node {
	return n.node
}

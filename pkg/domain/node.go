package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NodeID identifies a node within one compiled graph.
// Graph editors emit numeric ids; stored node lists may carry strings.
// The empty NodeID means "no successor".
type NodeID string

// UnmarshalJSON accepts JSON numbers, strings and null.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NodeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid node id %s: %w", data, err)
	}
	*id = NodeID(normalizeNumber(n))
	return nil
}

// IsZero reports whether the id is empty.
func (id NodeID) IsZero() bool {
	return id == ""
}

func (id NodeID) String() string {
	return string(id)
}

// NodeIDFromAny converts a decoded JSON value (float64, json.Number, string) into a NodeID.
func NodeIDFromAny(v any) NodeID {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return NodeID(t)
	case json.Number:
		return NodeID(normalizeNumber(t))
	case float64:
		return NodeID(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return NodeID(strconv.Itoa(t))
	case int64:
		return NodeID(strconv.FormatInt(t, 10))
	default:
		return NodeID(fmt.Sprint(t))
	}
}

func normalizeNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	return n.String()
}

// InputBinding references the producer of a data-flow input.
type InputBinding struct {
	Node NodeID `json:"id"`
	Slot int    `json:"slot"`
}

// Node is a flat, executable node record.
// Successor fields are filled according to the kind's Arity.
type Node struct {
	ID         NodeID                  `json:"id"`
	Kind       Kind                    `json:"type"`
	Properties map[string]any          `json:"properties"`
	Inputs     map[string]InputBinding `json:"input_links,omitempty"`

	Next         NodeID `json:"next,omitempty"`
	NextFound    NodeID `json:"next_found,omitempty"`
	NextNotFound NodeID `json:"next_not_found,omitempty"`
	NextBody     NodeID `json:"next_body,omitempty"`
	NextExit     NodeID `json:"next_exit,omitempty"`
}

// Edge is a labelled successor reference.
type Edge struct {
	Label string
	To    NodeID
}

// Edges returns the non-empty successor references of the node in slot order.
func (n *Node) Edges() []Edge {
	var edges []Edge
	add := func(label string, to NodeID) {
		if !to.IsZero() {
			edges = append(edges, Edge{Label: label, To: to})
		}
	}
	add("next", n.Next)
	add("found", n.NextFound)
	add("not_found", n.NextNotFound)
	add("body", n.NextBody)
	add("exit", n.NextExit)
	return edges
}

// Property returns a raw property value.
func (n *Node) Property(key string) (any, bool) {
	if n.Properties == nil {
		return nil, false
	}
	v, ok := n.Properties[key]
	return v, ok
}

// StringProperty returns a property as a string, or def when absent or not a string.
func (n *Node) StringProperty(key, def string) string {
	v, ok := n.Property(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

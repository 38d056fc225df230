// Package validator checks compiled graphs for problems the engine would only
// discover while running: missing entry points, dangling successors, unknown
// kinds, malformed properties and unreachable nodes.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/schema"
)

// Severity ranks an issue.
type Severity string

const (
	// SeverityError marks an issue that fails the run when reached.
	SeverityError Severity = "error"
	// SeverityWarning marks an issue the engine tolerates.
	SeverityWarning Severity = "warning"
)

// Issue is one finding.
type Issue struct {
	Severity Severity      `json:"severity"`
	Node     domain.NodeID `json:"node,omitempty"`
	Message  string        `json:"message"`
}

func (i Issue) String() string {
	if i.Node.IsZero() {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: node %s: %s", i.Severity, i.Node, i.Message)
}

// Report collects the issues of one graph.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Err summarizes the error-severity issues, or returns nil when there are none.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

func (r *Report) add(s Severity, node domain.NodeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: s, Node: node, Message: fmt.Sprintf(format, args...)})
}

// ValidateGraph inspects a compiled top-level graph.
func ValidateGraph(nodes []domain.Node) *Report {
	r := &Report{}
	byID := make(map[domain.NodeID]*domain.Node, len(nodes))
	var entries []domain.NodeID
	commands := map[string][]domain.NodeID{}

	for i := range nodes {
		n := &nodes[i]
		if n.ID.IsZero() {
			r.add(SeverityError, "", "node at position %d has no id", i)
			continue
		}
		if _, dup := byID[n.ID]; dup {
			r.add(SeverityError, n.ID, "duplicate node id")
			continue
		}
		byID[n.ID] = n
	}

	for i := range nodes {
		n := &nodes[i]
		if n.ID.IsZero() {
			continue
		}
		kind := n.Kind.Normalize()
		if props, ok := runtime.PropertySchema(kind); !ok {
			r.add(SeverityWarning, n.ID, "unknown kind %q is skipped", n.Kind)
		} else {
			for _, e := range schema.ValidationErrors(schema.Validate(props, n.Properties)) {
				r.add(SeverityWarning, n.ID, "%v; the default is used", e)
			}
		}

		for _, e := range n.Edges() {
			if _, ok := byID[e.To]; !ok {
				r.add(SeverityError, n.ID, "%s successor %s does not exist", e.Label, e.To)
			}
		}
		for name, in := range n.Inputs {
			if _, ok := byID[in.Node]; !ok {
				r.add(SeverityWarning, n.ID, "input %q is bound to missing node %s", name, in.Node)
			}
		}

		switch kind {
		case domain.KindStart:
			entries = append(entries, n.ID)
		case domain.KindDiscordSlash:
			entries = append(entries, n.ID)
			cmd := registry.Normalize(n.StringProperty("command_name", ""))
			if cmd == "" {
				r.add(SeverityWarning, n.ID, "slash entry point has no command_name and is never triggered")
			} else {
				commands[cmd] = append(commands[cmd], n.ID)
			}
		case domain.KindDiscordWait:
			cmd := runtime.WaitCommand(n)
			commands[cmd] = append(commands[cmd], n.ID)
		case domain.KindFindImage:
			if strings.TrimSpace(n.StringProperty("template", "")) == "" {
				r.add(SeverityWarning, n.ID, "no template configured")
			}
		case domain.KindFindMultiImages:
			if strings.TrimSpace(n.StringProperty("templates", "")) == "" {
				r.add(SeverityWarning, n.ID, "no templates configured")
			}
		case domain.KindScript:
			if strings.TrimSpace(n.StringProperty("scriptName", "")) == "" {
				r.add(SeverityWarning, n.ID, "no scriptName configured")
			}
		case domain.KindLoop:
			if n.NextBody.IsZero() {
				r.add(SeverityWarning, n.ID, "loop has no body")
			}
		}
	}

	if len(entries) == 0 {
		r.add(SeverityError, "", "%v: add a start or discord_slash node", domain.ErrNoStartNode)
	}

	names := make([]string, 0, len(commands))
	for cmd := range commands {
		names = append(names, cmd)
	}
	sort.Strings(names)
	for _, cmd := range names {
		if ids := commands[cmd]; len(ids) > 1 {
			r.add(SeverityWarning, ids[len(ids)-1], "command /%s is also used by node %s; the later registration wins", cmd, ids[0])
		}
	}

	for _, id := range unreachable(nodes, byID, entries) {
		r.add(SeverityWarning, id, "unreachable from any entry point")
	}
	return r
}

// unreachable crawls successors breadth-first from every entry point.
func unreachable(nodes []domain.Node, byID map[domain.NodeID]*domain.Node, entries []domain.NodeID) []domain.NodeID {
	if len(entries) == 0 {
		return nil
	}
	visited := make(map[domain.NodeID]bool)
	queue := append([]domain.NodeID(nil), entries...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		n, ok := byID[current]
		if !ok {
			continue
		}
		for _, e := range n.Edges() {
			if !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}

	var out []domain.NodeID
	for i := range nodes {
		if id := nodes[i].ID; !id.IsZero() && !visited[id] {
			out = append(out, id)
		}
	}
	return out
}

package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/validator"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Summary renders a compiled graph as markdown: a kind histogram, the
// commands it answers to and one row per node.
func Summary(script string, nodes []domain.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", script)
	fmt.Fprintf(&sb, "%d nodes\n\n", len(nodes))

	counts := make(map[domain.Kind]int)
	var commands []string
	for i := range nodes {
		kind := nodes[i].Kind.Normalize()
		counts[kind]++
		switch kind {
		case domain.KindDiscordSlash, domain.KindDiscordWait:
			if c := strings.TrimPrefix(strings.TrimSpace(nodes[i].StringProperty("command_name", "")), "/"); c != "" {
				commands = append(commands, fmt.Sprintf("`/%s` (%s)", c, kind))
			}
		}
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	sb.WriteString("| Kind | Count |\n|---|---|\n")
	for _, k := range kinds {
		fmt.Fprintf(&sb, "| %s | %d |\n", k, counts[domain.Kind(k)])
	}

	if len(commands) > 0 {
		sb.WriteString("\n## Commands\n\n")
		for _, c := range commands {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}

	sb.WriteString("\n## Nodes\n\n| Id | Kind | Successors |\n|---|---|---|\n")
	for i := range nodes {
		n := &nodes[i]
		var edges []string
		for _, e := range n.Edges() {
			edges = append(edges, fmt.Sprintf("%s → %s", e.Label, e.To))
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", n.ID, n.Kind.Normalize(), strings.Join(edges, ", "))
	}
	return sb.String()
}

// Report renders validation findings as a markdown list.
func Report(script string, r *validator.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", script)
	if len(r.Issues) == 0 {
		sb.WriteString("✓ No issues found.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "%d errors, %d warnings\n\n", len(r.Errors()), len(r.Warnings()))
	for _, issue := range r.Issues {
		fmt.Fprintf(&sb, "- %s\n", issue)
	}
	return sb.String()
}

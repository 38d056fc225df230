package graph

import (
	"fmt"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/spf13/cast"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []domain.NodeID
	CurrentNode  domain.NodeID
}

// GenerateMermaid produces a Mermaid flowchart from compiled nodes.
// Shapes follow the node role:
//   - start, discord_slash: ((Circle))
//   - find_image, find_multi_images, check_pixel: {Diamond}
//   - loop: {{Hexagon}}
//   - script: [[Subroutine]]
//   - discord_wait: [/Parallelogram/]
//   - everything else: [Rectangle]
func GenerateMermaid(nodes []domain.Node, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i := range nodes {
		node := &nodes[i]
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Kind.Normalize() {
		case domain.KindStart, domain.KindDiscordSlash:
			opener, closer = "((", "))"
		case domain.KindFindImage, domain.KindFindMultiImages, domain.KindCheckPixel:
			opener, closer = "{", "}"
		case domain.KindLoop:
			opener, closer = "{{", "}}"
		case domain.KindScript:
			opener, closer = "[[", "]]"
		case domain.KindDiscordWait:
			opener, closer = "[/", "/]"
		}

		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label(node), closer)

		for _, e := range node.Edges() {
			safeTo := sanitizeMermaidID(e.To)
			if e.Label == "next" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
				continue
			}
			arrow := fmt.Sprintf("-- \"%s\" -->", e.Label)
			if e.Label == "exit" || e.Label == "not_found" {
				arrow = fmt.Sprintf("-. \"%s\" .->", e.Label)
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, safeTo)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && !id.IsZero() {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if !overlay.CurrentNode.IsZero() {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// label renders "id: kind" plus the property that best identifies the node.
func label(node *domain.Node) string {
	kind := node.Kind.Normalize()
	text := fmt.Sprintf("%s: %s", node.ID, kind)
	if detail := detail(node, kind); detail != "" {
		text += " <br/> " + escape(detail)
	}
	return text
}

func detail(node *domain.Node, kind domain.Kind) string {
	prop := func(key string) string {
		v, ok := node.Property(key)
		if !ok || v == nil {
			return ""
		}
		return cast.ToString(v)
	}
	switch kind {
	case domain.KindClick:
		if x, y := prop("x"), prop("y"); x != "" || y != "" {
			return fmt.Sprintf("(%s, %s)", x, y)
		}
	case domain.KindWait:
		if s := prop("seconds"); s != "" {
			return s + "s"
		}
	case domain.KindFindImage:
		return prop("template")
	case domain.KindFindMultiImages:
		return prop("templates")
	case domain.KindCheckPixel:
		return prop("color")
	case domain.KindLoop:
		if c := prop("count"); c != "" {
			return "x" + c
		}
	case domain.KindScript:
		return prop("scriptName")
	case domain.KindDiscordSlash, domain.KindDiscordWait:
		if c := prop("command_name"); c != "" {
			return "/" + strings.TrimPrefix(c, "/")
		}
	case domain.KindDiscordSend, domain.KindDiscordScreenshot:
		return prop("message")
	}
	return ""
}

// escape keeps labels inside their quotes.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.ReplaceAll(s, "\n", " ")
}

func sanitizeMermaidID(id domain.NodeID) string {
	s := string(id)
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Prefixed so ids such as "end" never clash with mermaid keywords.
	return "n" + s
}

package compiler

import (
	"sort"
	"strings"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// SplitTemplates parses a comma or newline separated template list.
func SplitTemplates(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// TemplateRefs returns every template image referenced by recognition nodes, sorted and deduplicated.
func TemplateRefs(nodes []domain.Node) []string {
	seen := make(map[string]struct{})
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind.Normalize() {
		case domain.KindFindImage:
			if t := strings.TrimSpace(n.StringProperty("template", "")); t != "" {
				seen[t] = struct{}{}
			}
		case domain.KindFindMultiImages:
			for _, t := range SplitTemplates(n.StringProperty("templates", "")) {
				seen[t] = struct{}{}
			}
		}
	}
	refs := make([]string, 0, len(seen))
	for t := range seen {
		refs = append(refs, t)
	}
	sort.Strings(refs)
	return refs
}

package memory

import (
	"encoding/json"
	"fmt"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// NewStoreFromNodes creates a store pre-populated with node-list scripts.
// This handles serialization automatically, improving DX for tests and embedding.
func NewStoreFromNodes(scripts map[string][]domain.Node) (*Store, error) {
	s := NewStore()
	for name, nodes := range scripts {
		if err := domain.ValidateScriptName(name); err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.ID.IsZero() {
				return nil, fmt.Errorf("script %s: node missing ID", name)
			}
		}
		data, err := json.Marshal(map[string]any{"actions": nodes})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal script %s: %w", name, err)
		}
		s.data[name] = data
	}
	return s, nil
}

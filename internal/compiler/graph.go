package compiler

import (
	"bytes"
	"encoding/json"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/spf13/cast"
)

// graph is the editor's serialized form.
type graph struct {
	Nodes []graphNode `json:"nodes"`
	Links []link      `json:"links"`
}

type graphNode struct {
	ID         domain.NodeID  `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Inputs     []graphInput   `json:"inputs"`
}

type graphInput struct {
	Name string `json:"name"`
	Link *int64 `json:"link"`
}

// link is one edge. The editor writes it either as a tuple
// [id, origin, originSlot, target, targetSlot, type] or as an object.
type link struct {
	ID         int64
	Origin     domain.NodeID
	OriginSlot int
	Target     domain.NodeID
	TargetSlot int
	valid      bool
}

func (l *link) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID         int64         `json:"id"`
			Origin     domain.NodeID `json:"origin_id"`
			OriginSlot int           `json:"origin_slot"`
			Target     domain.NodeID `json:"target_id"`
			TargetSlot int           `json:"target_slot"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*l = link{
			ID:         obj.ID,
			Origin:     obj.Origin,
			OriginSlot: obj.OriginSlot,
			Target:     obj.Target,
			TargetSlot: obj.TargetSlot,
			valid:      true,
		}
		return nil
	}

	var tuple []any
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	// Short tuples are skipped rather than rejected.
	if len(tuple) < 6 {
		*l = link{}
		return nil
	}
	*l = link{
		ID:         cast.ToInt64(tuple[0]),
		Origin:     domain.NodeIDFromAny(tuple[1]),
		OriginSlot: cast.ToInt(tuple[2]),
		Target:     domain.NodeIDFromAny(tuple[3]),
		TargetSlot: cast.ToInt(tuple[4]),
		valid:      true,
	}
	return nil
}

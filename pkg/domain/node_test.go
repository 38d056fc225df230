package domain_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.NodeID
	}{
		{"integer", `7`, "7"},
		{"float integral", `7.0`, "7"},
		{"string", `"loop-1"`, "loop-1"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id domain.NodeID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id domain.NodeID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestNodeIDFromAny(t *testing.T) {
	assert.Equal(t, domain.NodeID("3"), domain.NodeIDFromAny(float64(3)))
	assert.Equal(t, domain.NodeID("3"), domain.NodeIDFromAny(json.Number("3")))
	assert.Equal(t, domain.NodeID("a"), domain.NodeIDFromAny("a"))
	assert.Equal(t, domain.NodeID(""), domain.NodeIDFromAny(nil))
}

func TestNormalizeKind(t *testing.T) {
	assert.Equal(t, domain.KindClick, domain.NormalizeKind("bot/click"))
	assert.Equal(t, domain.KindClick, domain.NormalizeKind("click"))
	assert.Equal(t, domain.KindLoop, domain.NormalizeKind(" flow/bot/loop "))
	assert.True(t, domain.Kind("bot/discord_wait").Known())
	assert.False(t, domain.Kind("teleport").Known())
}

func TestKind_Arity(t *testing.T) {
	assert.Equal(t, domain.ArityLoop, domain.KindLoop.Arity())
	assert.Equal(t, domain.ArityFound, domain.KindFindImage.Arity())
	assert.Equal(t, domain.ArityFound, domain.KindFindMultiImages.Arity())
	assert.Equal(t, domain.ArityFound, domain.Kind("bot/check_pixel").Arity())
	assert.Equal(t, domain.ArityNext, domain.KindClick.Arity())
	assert.Equal(t, domain.ArityNext, domain.Kind("unknown").Arity())
}

func TestNode_Edges(t *testing.T) {
	n := domain.Node{ID: "1", Kind: domain.KindLoop, NextBody: "2", NextExit: "3"}
	assert.Equal(t, []domain.Edge{{Label: "body", To: "2"}, {Label: "exit", To: "3"}}, n.Edges())

	empty := domain.Node{ID: "9", Kind: domain.KindClick}
	assert.Empty(t, empty.Edges())
}

func TestNode_JSONRoundTripKeepsWireNames(t *testing.T) {
	n := domain.Node{
		ID:        "4",
		Kind:      domain.KindFindImage,
		Inputs:    map[string]domain.InputBinding{"X": {Node: "2", Slot: 2}},
		NextFound: "5",
	}
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"4","type":"find_image","properties":null,"input_links":{"X":{"id":"2","slot":2}},"next_found":"5"}`, string(data))
}

func TestNode_StringProperty(t *testing.T) {
	n := domain.Node{Properties: map[string]any{"template": "ok.png", "count": 3.0}}
	assert.Equal(t, "ok.png", n.StringProperty("template", ""))
	assert.Equal(t, "def", n.StringProperty("count", "def"))
	assert.Equal(t, "def", n.StringProperty("missing", "def"))
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnNodeEnter(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnRunEnd)
}

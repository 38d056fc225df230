package runtime

import (
	"log/slog"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// propertySchemas mirrors the prop tags of the handlers' property structs.
var propertySchemas = map[domain.Kind]schema.Schema{
	domain.KindClick: {"x": schema.Int(), "y": schema.Int()},
	domain.KindSwipe: {
		"x1": schema.Int(), "y1": schema.Int(),
		"x2": schema.Int(), "y2": schema.Int(),
		"duration": schema.Int(),
	},
	domain.KindWait:              {"seconds": schema.Float()},
	domain.KindFindImage:         {"template": schema.String(), "algorithm": schema.String()},
	domain.KindFindMultiImages:   {"templates": schema.String(), "algorithm": schema.String()},
	domain.KindCheckPixel:        {"x": schema.Int(), "y": schema.Int(), "color": schema.Color(), "tolerance": schema.Int()},
	domain.KindLoop:              {"count": schema.Int()},
	domain.KindScript:            {"scriptName": schema.String()},
	domain.KindDiscordSend:       {"message": schema.String()},
	domain.KindDiscordScreenshot: {"message": schema.String()},
	domain.KindDiscordWait:       {"command_name": schema.String()},
	domain.KindDiscordSlash:      {"command_name": schema.String()},
}

// PropertySchema returns the properties a kind reads. Kinds without
// properties return an empty schema; unknown kinds return false.
func PropertySchema(kind domain.Kind) (schema.Schema, bool) {
	kind = kind.Normalize()
	if !kind.Known() {
		return nil, false
	}
	if s, ok := propertySchemas[kind]; ok {
		return s, true
	}
	return schema.Schema{}, true
}

// PropertySchemas returns the schema of every built-in kind.
func PropertySchemas() map[domain.Kind]schema.Schema {
	out := make(map[domain.Kind]schema.Schema, len(domain.Kinds))
	for _, k := range domain.Kinds {
		out[k], _ = PropertySchema(k)
	}
	return out
}

// decodeProps decodes a node's property bag into out, whose fields must already
// hold their defaults. Fields that fail to decode keep the default and are reported.
func decodeProps(node *domain.Node, out any, logger *slog.Logger) {
	if len(node.Properties) == 0 {
		return
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "prop",
		Result:           out,
	})
	if err != nil {
		logger.Warn("Cannot build property decoder", "err", err)
		return
	}
	if err := dec.Decode(node.Properties); err != nil {
		logger.Warn("Invalid node properties, using defaults", "err", err)
	}
}

// inputInt resolves a data-flow input bound to another node's output slot.
// Unbound inputs, unresolved outputs and non-numeric values fall back to def.
func inputInt(frame *Frame, node *domain.Node, name string, def int) int {
	b, ok := node.Inputs[name]
	if !ok || frame == nil {
		return def
	}
	v, ok := frame.Output(b.Node, b.Slot)
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

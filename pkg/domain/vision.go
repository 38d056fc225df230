package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Color is an RGB pixel value.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ParseHexColor parses "#RRGGBB" (the leading '#' is optional).
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Distance is the summed per-channel absolute difference.
func (c Color) Distance(o Color) int {
	return absDiff(c.R, o.R) + absDiff(c.G, o.G) + absDiff(c.B, o.B)
}

// Hex renders the color as "#RRGGBB".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// MatchMethod selects the recognition strategy.
type MatchMethod string

const (
	// MatchAuto tries the feature strategy first, then falls back to template correlation.
	MatchAuto MatchMethod = "auto"
	// MatchFeature is the scale-tolerant strategy. Graphs call it "sift".
	MatchFeature MatchMethod = "sift"
	// MatchTemplate is plain correlation template matching.
	MatchTemplate MatchMethod = "template"
)

// ParseMatchMethod maps a property value to a MatchMethod, defaulting to MatchAuto.
func ParseMatchMethod(s string) MatchMethod {
	switch MatchMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MatchFeature:
		return MatchFeature
	case MatchTemplate:
		return MatchTemplate
	default:
		return MatchAuto
	}
}

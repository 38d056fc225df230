package domain

import "strings"

// Kind tags a node with the handler that executes it.
type Kind string

// Node kinds understood by the engine.
const (
	KindStart             Kind = "start"
	KindClick             Kind = "click"
	KindSwipe             Kind = "swipe"
	KindWait              Kind = "wait"
	KindHome              Kind = "home"
	KindClearApps         Kind = "clear_apps"
	KindFindImage         Kind = "find_image"
	KindFindMultiImages   Kind = "find_multi_images"
	KindCheckPixel        Kind = "check_pixel"
	KindLoop              Kind = "loop"
	KindLoopBreak         Kind = "loop_break"
	KindScript            Kind = "script"
	KindDiscordSend       Kind = "discord_send"
	KindDiscordScreenshot Kind = "discord_screenshot"
	KindDiscordWait       Kind = "discord_wait"
	KindDiscordSlash      Kind = "discord_slash"
)

// Kinds lists every kind with a built-in handler.
var Kinds = []Kind{
	KindStart, KindClick, KindSwipe, KindWait, KindHome, KindClearApps,
	KindFindImage, KindFindMultiImages, KindCheckPixel,
	KindLoop, KindLoopBreak, KindScript,
	KindDiscordSend, KindDiscordScreenshot, KindDiscordWait, KindDiscordSlash,
}

// Arity describes which successor references a kind fills from its output slots.
type Arity int

const (
	// ArityNext uses slot 0 as the single "next" successor.
	ArityNext Arity = iota
	// ArityFound uses slot 0 as "next_found" and slot 1 as "next_not_found".
	ArityFound
	// ArityLoop uses slot 0 as "next_body" and slot 1 as "next_exit".
	ArityLoop
)

// NormalizeKind strips any namespace prefix ("bot/click" -> "click").
func NormalizeKind(s string) Kind {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return Kind(s)
}

// Normalize returns the kind without its namespace prefix.
func (k Kind) Normalize() Kind {
	return NormalizeKind(string(k))
}

// Known reports whether the kind has a built-in handler.
func (k Kind) Known() bool {
	n := k.Normalize()
	for _, known := range Kinds {
		if n == known {
			return true
		}
	}
	return false
}

// Arity returns the successor shape of the kind.
func (k Kind) Arity() Arity {
	switch k.Normalize() {
	case KindLoop:
		return ArityLoop
	case KindFindImage, KindFindMultiImages, KindCheckPixel:
		return ArityFound
	default:
		return ArityNext
	}
}

package runtime

import (
	"context"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

func (e *Engine) registerBuiltins() {
	builtins := map[domain.Kind]HandlerFunc{
		domain.KindStart:             e.passThrough,
		domain.KindDiscordSlash:      e.passThrough,
		domain.KindClick:             e.click,
		domain.KindSwipe:             e.swipe,
		domain.KindWait:              e.wait,
		domain.KindHome:              e.keyEvent(homeKey),
		domain.KindClearApps:         e.keyEvent(appSwitchKey),
		domain.KindFindImage:         e.findImage,
		domain.KindFindMultiImages:   e.findMultiImages,
		domain.KindCheckPixel:        e.checkPixel,
		domain.KindLoop:              e.loop,
		domain.KindLoopBreak:         e.loopBreak,
		domain.KindScript:            e.script,
		domain.KindDiscordSend:       e.discordSend,
		domain.KindDiscordScreenshot: e.discordScreenshot,
		domain.KindDiscordWait:       e.discordWait,
	}
	for kind, h := range builtins {
		e.handlers[kind] = h
	}
}

// passThrough serves entry points: start and discord_slash.
func (e *Engine) passThrough(_ context.Context, node *domain.Node, _ *Run) (domain.NodeID, error) {
	return node.Next, nil
}

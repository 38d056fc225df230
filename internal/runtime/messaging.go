package runtime

import (
	"context"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

type messageProps struct {
	Message string `prop:"message"`
}

func (e *Engine) discordSend(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := messageProps{}
	decodeProps(node, &p, logger)

	if e.messenger == nil {
		logger.Warn("Skipped direct message: no messenger attached")
		return node.Next, nil
	}
	if err := Await(e.messenger.SendDirectMessage(ctx, p.Message), e.sendTimeout); err != nil {
		logger.Warn("Direct message failed", "err", err)
		return node.Next, nil
	}
	logger.Info("Sent direct message", "message", p.Message)
	return node.Next, nil
}

func (e *Engine) discordScreenshot(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := messageProps{}
	decodeProps(node, &p, logger)

	if e.device == nil {
		logger.Warn("No device attached, cannot capture screenshot")
		return node.Next, nil
	}
	img, err := e.device.Screenshot(ctx)
	if err != nil {
		logger.Warn("Screenshot capture failed", "err", err)
		return node.Next, nil
	}
	if e.messenger == nil {
		logger.Warn("Skipped screenshot message: no messenger attached")
		return node.Next, nil
	}
	future := e.messenger.SendDirectMessageWithImage(ctx, p.Message, img, DefaultScreenshotAttachment)
	if err := Await(future, e.screenshotTimeout); err != nil {
		logger.Warn("Screenshot message failed", "err", err)
		return node.Next, nil
	}
	logger.Info("Sent screenshot", "bytes", len(img))
	return node.Next, nil
}

// discordWait suspends the walk until the node's command is dispatched or the run is cancelled.
// Cancellation ends the walk as stopped without taking a successor.
func (e *Engine) discordWait(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	cmd := WaitCommand(node)
	key := WaitKey{Scope: run.Frame().Scope, Node: node.ID}

	h := run.Waits().Register(key)
	defer run.Waits().Remove(key, h)

	logger.Info("Waiting for command", "command", "/"+cmd)
	if err := suspend(ctx, h, e.pollInterval); err != nil {
		logger.Info("Wait cancelled (script stopped)", "command", "/"+cmd)
		return "", err
	}
	logger.Info("Resumed by command", "command", "/"+cmd)
	return node.Next, nil
}

package runtime

import (
	"context"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
)

const (
	homeKey      = ports.KeyCodeHome
	appSwitchKey = ports.KeyCodeAppSwitch
)

type clickProps struct {
	X int `prop:"x"`
	Y int `prop:"y"`
}

type swipeProps struct {
	X1       int `prop:"x1"`
	Y1       int `prop:"y1"`
	X2       int `prop:"x2"`
	Y2       int `prop:"y2"`
	Duration int `prop:"duration"`
}

type waitProps struct {
	Seconds float64 `prop:"seconds"`
}

func (e *Engine) click(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := clickProps{X: 500, Y: 500}
	decodeProps(node, &p, logger)

	frame := run.Frame()
	x := inputInt(frame, node, "X", p.X)
	y := inputInt(frame, node, "Y", p.Y)

	if e.device == nil {
		logger.Warn("No device attached, skipping tap")
		return node.Next, nil
	}
	logger.Info("Tap", "x", x, "y", y)
	if err := e.device.Tap(ctx, x, y); err != nil {
		logger.Warn("Tap failed", "err", err)
	}
	return node.Next, nil
}

func (e *Engine) swipe(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := swipeProps{X1: 500, Y1: 800, X2: 500, Y2: 200, Duration: 500}
	decodeProps(node, &p, logger)

	frame := run.Frame()
	x1 := inputInt(frame, node, "X1", p.X1)
	y1 := inputInt(frame, node, "Y1", p.Y1)
	x2 := inputInt(frame, node, "X2", p.X2)
	y2 := inputInt(frame, node, "Y2", p.Y2)
	d := time.Duration(p.Duration) * time.Millisecond

	if e.device == nil {
		logger.Warn("No device attached, skipping swipe")
		return node.Next, nil
	}
	logger.Info("Swipe", "from", domain.Point{X: x1, Y: y1}, "to", domain.Point{X: x2, Y: y2}, "duration", d)
	if err := e.device.Swipe(ctx, x1, y1, x2, y2, d); err != nil {
		logger.Warn("Swipe failed", "err", err)
	}
	return node.Next, nil
}

// wait sleeps for the whole duration; cancellation is only observed once it returns.
func (e *Engine) wait(_ context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := waitProps{Seconds: 1.0}
	decodeProps(node, &p, logger)

	d := time.Duration(p.Seconds * float64(time.Second))
	logger.Info("Waiting", "seconds", p.Seconds)
	if d > 0 {
		e.sleep(d)
	}
	return node.Next, nil
}

func (e *Engine) keyEvent(code int) HandlerFunc {
	return func(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
		logger := e.nodeLogger(run, node)
		if e.device == nil {
			logger.Warn("No device attached, skipping key event", "code", code)
			return node.Next, nil
		}
		logger.Info("Key event", "code", code)
		if err := e.device.KeyEvent(ctx, code); err != nil {
			logger.Warn("Key event failed", "code", code, "err", err)
		}
		return node.Next, nil
	}
}

package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/compiler"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Output slots a recognition node writes the match center to.
const (
	SlotX = 2
	SlotY = 3
)

type findImageProps struct {
	Template  string `prop:"template"`
	Templates string `prop:"templates"`
	Algorithm string `prop:"algorithm"`
}

type checkPixelProps struct {
	X         int    `prop:"x"`
	Y         int    `prop:"y"`
	Color     string `prop:"color"`
	Tolerance int    `prop:"tolerance"`
}

func (e *Engine) findImage(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := findImageProps{Algorithm: string(domain.MatchAuto)}
	decodeProps(node, &p, logger)

	if p.Template == "" {
		logger.Warn("No template configured")
		return node.NextNotFound, nil
	}

	method := domain.ParseMatchMethod(p.Algorithm)
	logger.Info("Checking", "template", p.Template, "method", method)
	if pt, ok := e.locate(ctx, run, p.Template, method, e.locateTimeout, logger); ok {
		logger.Info("Found", "template", p.Template, "at", pt)
		e.recordMatch(run, node, pt)
		return node.NextFound, nil
	}
	logger.Info("Not found", "template", p.Template)
	return node.NextNotFound, nil
}

func (e *Engine) findMultiImages(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := findImageProps{Algorithm: string(domain.MatchAuto)}
	decodeProps(node, &p, logger)

	templates := compiler.SplitTemplates(p.Templates)
	if len(templates) == 0 {
		logger.Warn("No templates configured")
		return node.NextNotFound, nil
	}

	method := domain.ParseMatchMethod(p.Algorithm)
	for _, t := range templates {
		if pt, ok := e.locate(ctx, run, t, method, e.multiLocateTimeout, logger); ok {
			logger.Info("Found", "template", t, "at", pt)
			e.recordMatch(run, node, pt)
			return node.NextFound, nil
		}
	}
	logger.Info("None of the templates found", "count", len(templates))
	return node.NextNotFound, nil
}

func (e *Engine) checkPixel(ctx context.Context, node *domain.Node, run *Run) (domain.NodeID, error) {
	logger := e.nodeLogger(run, node)
	p := checkPixelProps{X: 500, Y: 500, Color: "#000000", Tolerance: 10}
	decodeProps(node, &p, logger)

	frame := run.Frame()
	x := inputInt(frame, node, "X", p.X)
	y := inputInt(frame, node, "Y", p.Y)

	want, err := domain.ParseHexColor(p.Color)
	if err != nil {
		logger.Warn("Invalid expected color", "color", p.Color, "err", err)
		return node.NextNotFound, nil
	}
	if e.device == nil {
		logger.Warn("No device attached, cannot sample pixel")
		return node.NextNotFound, nil
	}
	got, err := e.device.SamplePixel(ctx, x, y)
	if err != nil {
		logger.Warn("Pixel sample failed", "x", x, "y", y, "err", err)
		return node.NextNotFound, nil
	}

	diff := got.Distance(want)
	threshold := p.Tolerance * 3
	logger.Info("Pixel check", "x", x, "y", y, "got", got.Hex(), "want", want.Hex(), "diff", diff, "threshold", threshold)
	if diff <= threshold {
		return node.NextFound, nil
	}
	return node.NextNotFound, nil
}

func (e *Engine) locate(ctx context.Context, run *Run, template string, method domain.MatchMethod, timeout time.Duration, logger *slog.Logger) (domain.Point, bool) {
	if e.recognizer == nil {
		logger.Warn("No recognizer attached")
		return domain.Point{}, false
	}
	path := template
	if e.templates != nil {
		script := ""
		if f := run.Frame(); f != nil {
			script = f.Script
		}
		path = e.templates.ResolveTemplate(script, template)
	}
	pt, ok, err := e.recognizer.Locate(ctx, path, method, timeout)
	if err != nil {
		logger.Warn("Recognition failed", "template", template, "err", err)
		return domain.Point{}, false
	}
	return pt, ok
}

func (e *Engine) recordMatch(run *Run, node *domain.Node, pt domain.Point) {
	frame := run.Frame()
	frame.SetOutput(node.ID, SlotX, pt.X)
	frame.SetOutput(node.ID, SlotY, pt.Y)
}

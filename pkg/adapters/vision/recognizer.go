// Package vision locates template images on a device screen.
//
// Two strategies are offered. MatchTemplate runs a normalized cross-correlation
// search at the screen's native scale. MatchFeature repeats that search over a
// range of screen scales, which tolerates templates captured at a different
// resolution. MatchAuto tries the scale-tolerant search first and falls back to
// the plain one. Every strategy keeps capturing the screen until it finds a
// match or its timeout elapses.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

const (
	DefaultTemplateThreshold = 0.8
	DefaultFeatureThreshold  = 0.7
	DefaultRetryInterval     = 500 * time.Millisecond
	// AutoStageTimeout caps each stage of MatchAuto.
	AutoStageTimeout = 2 * time.Second
)

// DefaultScales are the screen scales MatchFeature searches.
var DefaultScales = []float64{0.8, 0.85, 0.9, 0.95, 1, 1.05, 1.1, 1.15, 1.2}

// Screen captures the current screen as encoded image bytes.
// ports.Device satisfies it.
type Screen interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Loader reads a template image.
type Loader func(path string) (image.Image, error)

// LoadFile decodes a PNG or JPEG file.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", path, err)
	}
	return img, nil
}

// Recognizer implements ports.Recognizer.
type Recognizer struct {
	screen            Screen
	load              Loader
	logger            *slog.Logger
	interval          time.Duration
	templateThreshold float64
	featureThreshold  float64
	scales            []float64
	sleep             func(ctx context.Context, d time.Duration)
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the recognizer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = logger
	}
}

// WithLoader replaces how templates are read.
func WithLoader(load Loader) Option {
	return func(r *Recognizer) {
		r.load = load
	}
}

// WithRetryInterval sets the pause between two screen captures.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Recognizer) {
		r.interval = d
	}
}

// WithThresholds sets the minimum scores of the template and feature strategies.
func WithThresholds(template, feature float64) Option {
	return func(r *Recognizer) {
		r.templateThreshold = template
		r.featureThreshold = feature
	}
}

// WithScales sets the screen scales searched by MatchFeature.
func WithScales(scales ...float64) Option {
	return func(r *Recognizer) {
		r.scales = append([]float64(nil), scales...)
	}
}

// New creates a recognizer reading frames from screen.
func New(screen Screen, opts ...Option) *Recognizer {
	r := &Recognizer{
		screen:            screen,
		load:              LoadFile,
		interval:          DefaultRetryInterval,
		templateThreshold: DefaultTemplateThreshold,
		featureThreshold:  DefaultFeatureThreshold,
		scales:            DefaultScales,
		sleep:             sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	return r
}

// Locate searches the screen for template until timeout and returns the center of the match.
// A template that cannot be read is an error; a capture failure ends the search as not found.
func (r *Recognizer) Locate(ctx context.Context, template string, method domain.MatchMethod, timeout time.Duration) (domain.Point, bool, error) {
	img, err := r.load(template)
	if err != nil {
		return domain.Point{}, false, err
	}
	tmpl := toGray(img)
	if tmpl.Bounds().Empty() {
		return domain.Point{}, false, fmt.Errorf("template %s is empty", template)
	}
	logger := r.logger.With("template", template, "method", method)

	switch method {
	case domain.MatchTemplate:
		return r.poll(ctx, logger, timeout, func(s *image.Gray) (domain.Point, float64, bool) {
			return r.matchTemplate(s, tmpl)
		})
	case domain.MatchFeature:
		return r.poll(ctx, logger, timeout, func(s *image.Gray) (domain.Point, float64, bool) {
			return r.matchScaled(s, tmpl)
		})
	default:
		stage := min(timeout, AutoStageTimeout)
		pt, ok, err := r.poll(ctx, logger, stage, func(s *image.Gray) (domain.Point, float64, bool) {
			return r.matchScaled(s, tmpl)
		})
		if ok || err != nil || ctx.Err() != nil {
			return pt, ok, err
		}
		pt, ok, err = r.poll(ctx, logger, stage, func(s *image.Gray) (domain.Point, float64, bool) {
			return r.matchTemplate(s, tmpl)
		})
		if ok {
			logger.Info("Template matching fallback found match", "at", pt)
		}
		return pt, ok, err
	}
}

type matcher func(screen *image.Gray) (domain.Point, float64, bool)

// poll captures the screen at least once, then retries until the deadline.
func (r *Recognizer) poll(ctx context.Context, logger *slog.Logger, timeout time.Duration, match matcher) (domain.Point, bool, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		shot, err := r.capture(ctx)
		if err != nil {
			logger.Warn("Screen capture failed", "err", err)
			return domain.Point{}, false, nil
		}
		if pt, s, ok := match(shot); ok {
			logger.Debug("Match", "at", pt, "score", s, "attempt", attempt)
			return pt, true, nil
		}
		if ctx.Err() != nil || time.Now().Add(r.interval).After(deadline) {
			return domain.Point{}, false, nil
		}
		r.sleep(ctx, r.interval)
	}
}

func (r *Recognizer) capture(ctx context.Context) (*image.Gray, error) {
	raw, err := r.screen.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screen capture: %w", err)
	}
	return toGray(img), nil
}

func (r *Recognizer) matchTemplate(screen, tmpl *image.Gray) (domain.Point, float64, bool) {
	x, y, s, ok := bestMatch(planeOf(screen), planeOf(tmpl))
	if !ok || s < r.templateThreshold {
		return domain.Point{}, s, false
	}
	b := tmpl.Bounds()
	return domain.Point{X: x + b.Dx()/2, Y: y + b.Dy()/2}, s, true
}

// matchScaled resizes the screen rather than the template and maps the
// best placement back to native screen coordinates.
func (r *Recognizer) matchScaled(screen, tmpl *image.Gray) (domain.Point, float64, bool) {
	tp := planeOf(tmpl)
	sb, tb := screen.Bounds(), tmpl.Bounds()

	var best domain.Point
	bestScore := math.Inf(-1)
	for _, scale := range r.scales {
		scaled := resize(screen, scale)
		rb := scaled.Bounds()
		if rb.Dx() < tb.Dx() || rb.Dy() < tb.Dy() {
			continue
		}
		x, y, s, ok := bestMatch(planeOf(scaled), tp)
		if !ok || s <= bestScore {
			continue
		}
		sx := float64(rb.Dx()) / float64(sb.Dx())
		sy := float64(rb.Dy()) / float64(sb.Dy())
		bestScore = s
		best = domain.Point{
			X: int((float64(x) + float64(tb.Dx())/2) / sx),
			Y: int((float64(y) + float64(tb.Dy())/2) / sy),
		}
	}
	if bestScore < r.featureThreshold {
		return domain.Point{}, bestScore, false
	}
	return best, bestScore, true
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package ports

import (
	"context"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Android key codes used by the engine.
const (
	KeyCodeHome      = 3
	KeyCodeAppSwitch = 187
)

// Device controls the remote device.
// Every call is best-effort: failures are returned, never panicked, and the
// engine logs them and carries on.
type Device interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	KeyEvent(ctx context.Context, code int) error
	// Screenshot returns the current screen as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// SamplePixel returns the RGB color at (x, y).
	SamplePixel(ctx context.Context, x, y int) (domain.Color, error)
}

// Recognizer locates template images on the device screen.
// Retry policy (repeated screenshots until timeout) belongs to the implementation.
type Recognizer interface {
	// Locate returns the center of the best match and whether one was found.
	Locate(ctx context.Context, template string, method domain.MatchMethod, timeout time.Duration) (domain.Point, bool, error)
}

// TemplateResolver maps a template reference to a loadable path,
// preferring images stored alongside the calling script.
type TemplateResolver interface {
	ResolveTemplate(script, template string) string
}

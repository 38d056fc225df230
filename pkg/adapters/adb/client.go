// Package adb drives an Android emulator through the adb command-line tool.
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/logging"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/process"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

const (
	// DefaultHost is where the emulator's adb daemon listens by default.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the BlueStacks adb port.
	DefaultPort = 5555
	// Alias is the process alias the client runs.
	Alias = "adb"
)

var (
	// ErrConnect is returned when adb could not attach to the device.
	ErrConnect = errors.New("adb connect failed")
	// ErrNotPNG is returned when a screen capture is not a PNG image.
	ErrNotPNG = errors.New("screen capture is not a png")
	// ErrOutOfBounds is returned when a pixel lies outside the screen.
	ErrOutOfBounds = errors.New("pixel out of bounds")
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Commander runs an allow-listed process and returns its stdout.
// *process.Runner satisfies it.
type Commander interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Client implements ports.Device over adb.
type Client struct {
	serial string
	runner Commander
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the process runner. The runner must resolve the "adb" alias.
func WithRunner(r Commander) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// WithBinary sets the adb executable used by the default runner.
func WithBinary(path string) Option {
	return func(c *Client) {
		r := process.NewRunner()
		r.Register(Alias, path)
		c.runner = r
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the device at host:port. It does not connect.
func New(host string, port int, opts ...Option) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	c := &Client{
		serial: net.JoinHostPort(host, strconv.Itoa(port)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		r := process.NewRunner()
		r.Register(Alias, "adb")
		c.runner = r
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	return c
}

// Address returns the device serial, "host:port".
func (c *Client) Address() string {
	return c.serial
}

// Connect attaches the adb server to the device.
func (c *Client) Connect(ctx context.Context) error {
	out, err := c.runner.Run(ctx, Alias, "connect", c.serial)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnect, c.serial, err)
	}
	// adb exits 0 even when the connection is refused.
	msg := strings.ToLower(strings.TrimSpace(string(out)))
	if !strings.Contains(msg, "connected to") {
		return fmt.Errorf("%w: %s: %s", ErrConnect, c.serial, msg)
	}
	c.logger.Info("Connected to device", "device", c.serial)
	return nil
}

// Disconnect detaches the device from the adb server.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := c.runner.Run(ctx, Alias, "disconnect", c.serial)
	return err
}

func (c *Client) shell(ctx context.Context, args ...string) error {
	full := append([]string{"-s", c.serial, "shell"}, args...)
	_, err := c.runner.Run(ctx, Alias, full...)
	return err
}

// Tap taps the screen at (x, y).
func (c *Client) Tap(ctx context.Context, x, y int) error {
	c.logger.Debug("tap", "x", x, "y", y)
	return c.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
}

// Swipe drags from (x1, y1) to (x2, y2) over duration.
func (c *Client) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	c.logger.Debug("swipe", "from", []int{x1, y1}, "to", []int{x2, y2}, "duration", duration)
	return c.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.FormatInt(duration.Milliseconds(), 10))
}

// KeyEvent sends an Android key code.
func (c *Client) KeyEvent(ctx context.Context, code int) error {
	c.logger.Debug("keyevent", "code", code)
	return c.shell(ctx, "input", "keyevent", strconv.Itoa(code))
}

// Screenshot captures the screen as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	out, err := c.runner.Run(ctx, Alias, "-s", c.serial, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(out, pngSignature) {
		return nil, ErrNotPNG
	}
	return out, nil
}

// Capture decodes a screenshot.
func (c *Client) Capture(ctx context.Context) (image.Image, error) {
	raw, err := c.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screen capture: %w", err)
	}
	return img, nil
}

// SamplePixel returns the color at (x, y) of a fresh screenshot.
func (c *Client) SamplePixel(ctx context.Context, x, y int) (domain.Color, error) {
	img, err := c.Capture(ctx)
	if err != nil {
		return domain.Color{}, err
	}
	return PixelAt(img, x, y)
}

// PixelAt returns the color at (x, y) relative to the image origin.
func PixelAt(img image.Image, x, y int) (domain.Color, error) {
	b := img.Bounds()
	if x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
		return domain.Color{}, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, b.Dx(), b.Dy())
	}
	r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	return domain.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}, nil
}

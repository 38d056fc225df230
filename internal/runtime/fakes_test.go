package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/internal/runtime"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/registry"
	"github.com/stretchr/testify/require"
)

type swipeCall struct {
	From, To domain.Point
	Duration time.Duration
}

// fakeDevice records every call.
type fakeDevice struct {
	mu       sync.Mutex
	taps     []domain.Point
	swipes   []swipeCall
	keys     []int
	pixel    domain.Color
	pixelErr error
	shot     []byte
	tapErr   error
}

func (d *fakeDevice) Tap(_ context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taps = append(d.taps, domain.Point{X: x, Y: y})
	return d.tapErr
}

func (d *fakeDevice) Swipe(_ context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.swipes = append(d.swipes, swipeCall{From: domain.Point{X: x1, Y: y1}, To: domain.Point{X: x2, Y: y2}, Duration: duration})
	return nil
}

func (d *fakeDevice) KeyEvent(_ context.Context, code int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, code)
	return nil
}

func (d *fakeDevice) Screenshot(context.Context) ([]byte, error) {
	if d.shot == nil {
		return nil, errors.New("no screen")
	}
	return d.shot, nil
}

func (d *fakeDevice) SamplePixel(context.Context, int, int) (domain.Color, error) {
	return d.pixel, d.pixelErr
}

func (d *fakeDevice) Taps() []domain.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Point(nil), d.taps...)
}

func (d *fakeDevice) Keys() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.keys...)
}

// fakeRecognizer answers from a fixed table of template -> point.
type fakeRecognizer struct {
	mu      sync.Mutex
	matches map[string]domain.Point
	err     error
	asked   []string
}

func (r *fakeRecognizer) Locate(_ context.Context, template string, _ domain.MatchMethod, _ time.Duration) (domain.Point, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asked = append(r.asked, template)
	if r.err != nil {
		return domain.Point{}, false, r.err
	}
	p, ok := r.matches[template]
	return p, ok, nil
}

type sentMessage struct {
	Text     string
	Image    []byte
	Filename string
}

// fakeMessenger resolves every send immediately unless hang is set.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	hang bool
}

func (m *fakeMessenger) record(msg sentMessage) <-chan error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.hang {
		return make(chan error)
	}
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func (m *fakeMessenger) SendDirectMessage(_ context.Context, text string) <-chan error {
	return m.record(sentMessage{Text: text})
}

func (m *fakeMessenger) SendDirectMessageWithImage(_ context.Context, text string, image []byte, filename string) <-chan error {
	return m.record(sentMessage{Text: text, Image: image, Filename: filename})
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// mapStore is a ScriptStore over a map of node lists.
type mapStore map[string][]domain.Node

func (s mapStore) Load(_ context.Context, name string) ([]byte, error) {
	nodes, ok := s[name]
	if !ok {
		return nil, domain.ErrScriptNotFound
	}
	return json.Marshal(nodes)
}

func (s mapStore) Save(context.Context, string, []byte) error { return nil }
func (s mapStore) Delete(context.Context, string) error { return nil }
func (s mapStore) List(context.Context) ([]string, error) { return nil, nil }

type harness struct {
	engine     *runtime.Engine
	device     *fakeDevice
	recognizer *fakeRecognizer
	messenger  *fakeMessenger
	commands   *registry.Registry
	store      mapStore
	slept      []time.Duration
}

func newHarness(t *testing.T, opts ...runtime.EngineOption) *harness {
	t.Helper()
	h := &harness{
		device:     &fakeDevice{},
		recognizer: &fakeRecognizer{matches: map[string]domain.Point{}},
		messenger:  &fakeMessenger{},
		commands:   registry.NewRegistry(),
		store:      mapStore{},
	}
	base := []runtime.EngineOption{
		runtime.WithDevice(h.device),
		runtime.WithRecognizer(h.recognizer),
		runtime.WithMessenger(h.messenger),
		runtime.WithCommandTable(h.commands),
		runtime.WithScriptStore(h.store),
		runtime.WithYield(0),
		runtime.WithPollInterval(10 * time.Millisecond),
		runtime.WithSleeper(func(d time.Duration) { h.slept = append(h.slept, d) }),
	}
	h.engine = runtime.NewEngine(append(base, opts...)...)
	return h
}

// exec runs nodes as the top-level graph and returns the run, its root frame and the outcome.
func (h *harness) exec(t *testing.T, nodes []domain.Node) (*runtime.Run, *runtime.Frame, error) {
	t.Helper()
	run := runtime.NewRun("test-run")
	frame := run.NewFrame("", nodes)
	err := h.engine.Execute(context.Background(), run, frame, "")
	return run, frame, err
}

func props(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func requireStructural(t *testing.T, err error, target error) *runtime.StructuralError {
	t.Helper()
	require.ErrorIs(t, err, target)
	var se *runtime.StructuralError
	require.ErrorAs(t, err, &se)
	return se
}

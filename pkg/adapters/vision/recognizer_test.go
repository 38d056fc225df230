package vision_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/adapters/vision"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Recognizer = (*vision.Recognizer)(nil)

func noise(w, h int, seed uint64) *image.Gray {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	return img
}

func crop(img *image.Gray, x, y, w, h int) image.Image {
	return img.SubImage(image.Rect(x, y, x+w, y+h))
}

type screen struct {
	mu    sync.Mutex
	png   []byte
	err   error
	shots int
}

func newScreen(t *testing.T, img image.Image) *screen {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &screen{png: buf.Bytes()}
}

func (s *screen) Screenshot(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shots++
	return s.png, s.err
}

func (s *screen) Shots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shots
}

func loaderFor(templates map[string]image.Image) vision.Loader {
	return func(path string) (image.Image, error) {
		if img, ok := templates[path]; ok {
			return img, nil
		}
		return nil, errors.New("no such template")
	}
}

func TestLocate_Methods(t *testing.T) {
	bg := noise(80, 60, 1)
	scr := newScreen(t, bg)
	r := vision.New(scr,
		vision.WithRetryInterval(time.Millisecond),
		vision.WithLoader(loaderFor(map[string]image.Image{"btn.png": crop(bg, 33, 21, 16, 12)})),
	)

	for _, method := range []domain.MatchMethod{domain.MatchTemplate, domain.MatchFeature, domain.MatchAuto} {
		t.Run(string(method), func(t *testing.T) {
			pt, ok, err := r.Locate(context.Background(), "btn.png", method, 50*time.Millisecond)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, domain.Point{X: 41, Y: 27}, pt)
		})
	}
}

func TestLocate_NotFoundRetriesUntilTimeout(t *testing.T) {
	scr := newScreen(t, noise(80, 60, 1))
	r := vision.New(scr,
		vision.WithRetryInterval(2*time.Millisecond),
		vision.WithLoader(loaderFor(map[string]image.Image{"other.png": noise(16, 12, 7)})),
	)

	began := time.Now()
	_, ok, err := r.Locate(context.Background(), "other.png", domain.MatchTemplate, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, scr.Shots(), 1)
	assert.Less(t, time.Since(began), time.Second)
}

func TestLocate_ZeroTimeoutCapturesOnce(t *testing.T) {
	scr := newScreen(t, noise(40, 30, 3))
	r := vision.New(scr, vision.WithLoader(loaderFor(map[string]image.Image{"x.png": noise(8, 8, 9)})))

	_, ok, err := r.Locate(context.Background(), "x.png", domain.MatchTemplate, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, scr.Shots())
}

func TestLocate_AutoRunsBothStages(t *testing.T) {
	scr := newScreen(t, noise(40, 30, 3))
	r := vision.New(scr, vision.WithLoader(loaderFor(map[string]image.Image{"x.png": noise(8, 8, 9)})))

	_, ok, err := r.Locate(context.Background(), "x.png", domain.MatchAuto, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, scr.Shots())
}

func TestLocate_Failures(t *testing.T) {
	t.Run("template unreadable", func(t *testing.T) {
		r := vision.New(newScreen(t, noise(10, 10, 1)), vision.WithLoader(loaderFor(nil)))
		_, ok, err := r.Locate(context.Background(), "missing.png", domain.MatchAuto, 0)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("capture fails", func(t *testing.T) {
		scr := newScreen(t, noise(10, 10, 1))
		scr.err = errors.New("device offline")
		r := vision.New(scr, vision.WithLoader(loaderFor(map[string]image.Image{"a.png": noise(4, 4, 2)})))
		_, ok, err := r.Locate(context.Background(), "a.png", domain.MatchTemplate, time.Second)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, scr.Shots())
	})

	t.Run("template larger than screen", func(t *testing.T) {
		r := vision.New(newScreen(t, noise(10, 10, 1)),
			vision.WithLoader(loaderFor(map[string]image.Image{"big.png": noise(20, 20, 2)})))
		_, ok, err := r.Locate(context.Background(), "big.png", domain.MatchFeature, 0)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLocate_LargeTemplate(t *testing.T) {
	bg := noise(160, 120, 5)
	r := vision.New(newScreen(t, bg),
		vision.WithLoader(loaderFor(map[string]image.Image{"panel.png": crop(bg, 60, 44, 40, 32)})))

	pt, ok, err := r.Locate(context.Background(), "panel.png", domain.MatchTemplate, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 80, Y: 60}, pt)
}

func TestLocate_Cancelled(t *testing.T) {
	scr := newScreen(t, noise(40, 30, 3))
	r := vision.New(scr,
		vision.WithRetryInterval(time.Hour),
		vision.WithLoader(loaderFor(map[string]image.Image{"x.png": noise(8, 8, 9)})))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, ok, err := r.Locate(ctx, "x.png", domain.MatchTemplate, 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
)

func newTestRenderer(t *testing.T, cfg *config.Config) *Renderer {
	t.Helper()
	sprites, err := LoadSprites(cfg.Objects)
	require.NoError(t, err)
	r, err := NewRenderer(sprites)
	require.NoError(t, err)
	return r
}

func newTestScene(t *testing.T, cfg *config.Config) *scene.Scene {
	t.Helper()
	s, err := scene.New(cfg)
	require.NoError(t, err)
	return s
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestRender_FrameSize(t *testing.T) {
	cfg := config.Default()
	cfg.Canvas.WidthPx, cfg.Canvas.HeightPx = 640, 480
	img := newTestRenderer(t, cfg).Render(newTestScene(t, cfg))
	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
}

func TestRender_BackgroundAndRig(t *testing.T) {
	cfg := config.Default()
	s := newTestScene(t, cfg)
	img := newTestRenderer(t, cfg).Render(s)

	assert.Equal(t, color.RGBA{R: 240, G: 240, B: 240, A: 255}, rgbaAt(img, 5, 5), "background")

	// Left camera box is centered half a baseline left of the canvas center.
	leftX := int(float64(cfg.Canvas.WidthPx)/2 - s.Camera.BaselineM*s.PixelsPerMeter/2)
	assert.Equal(t, color.RGBA{A: 255}, rgbaAt(img, leftX, 5), "camera box")
}

func TestRender_UpdatesScale(t *testing.T) {
	cfg := config.Default()
	s := newTestScene(t, cfg)
	r := newTestRenderer(t, cfg)

	_, err := s.Apply(scene.NewParamChanged(scene.ParamBaseline, 2))
	require.NoError(t, err)
	r.Render(s)
	assert.InDelta(t, s.Viewport.UpdateScale(s.Camera), s.PixelsPerMeter, 1e-12)
}

func TestRender_FOVTriangleTinted(t *testing.T) {
	cfg := config.Default()
	s := newTestScene(t, cfg)
	img := newTestRenderer(t, cfg).Render(s)

	// Straight below the center, past the overlap line, both triangles overlap.
	c := rgbaAt(img, cfg.Canvas.WidthPx/2, cfg.Canvas.HeightPx-50)
	assert.Greater(t, c.B, c.R, "overlap region should be tinted blue, got %+v", c)
}

func TestRender_ExtremeParametersDoNotPanic(t *testing.T) {
	cfg := config.Default()
	s := newTestScene(t, cfg)
	r := newTestRenderer(t, cfg)

	events := []scene.ParamChanged{
		scene.NewParamChanged(scene.ParamFOV, scene.FOVMax),
		scene.NewParamChanged(scene.ParamBaseline, scene.BaselineMin),
		scene.NewParamChanged(scene.RangeParam(2), scene.RangeSliderMax),
	}
	for _, ev := range events {
		_, err := s.Apply(ev)
		require.NoError(t, err)
		assert.NotPanics(t, func() { r.Render(s) })
	}
}

func TestSprite_Cache(t *testing.T) {
	cfg := config.Default()
	r := newTestRenderer(t, cfg)

	a := r.sprite("Person", 30, 1200)
	require.NotNil(t, a)
	assert.Equal(t, 30, a.Bounds().Dx())
	assert.Same(t, a, r.sprite("Person", 30.2, 1200), "same pixel size reuses the cached sprite")

	assert.Nil(t, r.sprite("Person", 0.2, 1200), "sub-pixel sprites are skipped")
	assert.Nil(t, r.sprite("Person", 10000, 1200), "oversized sprites are skipped")
	assert.Nil(t, r.sprite("Unknown", 30, 1200))
}

func TestPrecision2(t *testing.T) {
	assert.Equal(t, "0.78", precision2(0.7848427885587451))
	assert.Equal(t, "12", precision2(12.3))
}

package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/cjeanneret/RangeViz/internal/logic/geometry"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
)

// Camera box size in pixels.
const (
	cameraBoxWidth = 10.0
	fontSize       = 13.0
	// Sprites larger than this many canvas widths are not drawn, they
	// would only cover the whole frame.
	maxSpriteCanvasRatio = 4
)

var (
	background = color.Gray{Y: 240}
	rigBlue    = color.RGBA{R: 36, G: 107, B: 253, A: 255}
	fovFill    = color.NRGBA{R: 36, G: 107, B: 253, A: 100}
)

// Renderer draws scenes onto RGBA frames.
type Renderer struct {
	sprites map[string]image.Image
	face    font.Face

	// resized sprite cache, keyed by label; rebuilt when the size changes
	cache map[string]sizedSprite
}

type sizedSprite struct {
	size int
	img  image.Image
}

// NewRenderer creates a renderer with the given object sprites (by label).
func NewRenderer(sprites map[string]image.Image) (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{
		sprites: sprites,
		face:    truetype.NewFace(f, &truetype.Options{Size: fontSize}),
		cache:   make(map[string]sizedSprite),
	}, nil
}

// Render updates the scene scale and draws one frame: background, camera
// rig, detection objects with their stats and the error-bound table.
func (r *Renderer) Render(s *scene.Scene) *image.RGBA {
	ppm := s.UpdateScale()
	st := s.Snapshot()

	dc := gg.NewContext(s.Viewport.WidthPx, s.Viewport.HeightPx)
	dc.SetFontFace(r.face)
	dc.SetColor(background)
	dc.Clear()

	r.drawRig(dc, s.Viewport, s.Camera, ppm)
	for i, o := range s.Objects {
		r.drawObject(dc, s.Viewport, o, st.Objects[i], ppm)
	}
	r.drawErrorTable(dc, s.Viewport, st.FormatErrorTable())

	return dc.Image().(*image.RGBA)
}

// setSprites replaces the icons and drops every cached resize.
func (r *Renderer) setSprites(sprites map[string]image.Image) {
	r.sprites = sprites
	r.cache = make(map[string]sizedSprite)
}

func (r *Renderer) drawRig(dc *gg.Context, v geometry.Viewport, cam geometry.Camera, ppm float64) {
	camH := float64(v.CameraHeightPx)
	center := float64(v.WidthPx) / 2.0
	leftX := center - cam.BaselineM*ppm/2.0
	rightX := center + cam.BaselineM*ppm/2.0

	// FOV triangles open from each camera down to the bottom edge.
	fovDepth := v.UsableHeight()
	fovWidth := cam.FieldOfViewHalfWidthAt(fovDepth)
	for _, x := range []float64{leftX, rightX} {
		dc.MoveTo(x, camH)
		dc.LineTo(x-fovWidth, fovDepth+camH)
		dc.LineTo(x+fovWidth, fovDepth+camH)
		dc.ClosePath()
		dc.SetColor(fovFill)
		dc.FillPreserve()
		dc.SetColor(rigBlue)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	for _, x := range []float64{leftX, rightX} {
		dc.DrawRectangle(x-cameraBoxWidth/2.0, 0, cameraBoxWidth, camH)
		dc.SetColor(color.Black)
		dc.FillPreserve()
		dc.SetColor(rigBlue)
		dc.Stroke()
	}

	dc.SetColor(color.Black)
	dc.DrawLine(leftX, camH, rightX, camH)
	dc.Stroke()
	dc.DrawString(strconv.FormatFloat(cam.BaselineM, 'f', -1, 64)+" m", center-10, camH-1)

	overlap := cam.FirstOverlapRange()
	y := overlap*ppm + camH
	dc.DrawLine(0, y, float64(v.WidthPx), y)
	dc.Stroke()
	dc.DrawString(fmt.Sprintf("First detection at %sm", precision2(overlap)), 10, overlap*ppm+25)
}

func (r *Renderer) drawObject(dc *gg.Context, v geometry.Viewport, o geometry.DetectionObject, st scene.ObjectStats, ppm float64) {
	center := float64(v.WidthPx) / 2.0
	size := o.HeightM * ppm
	x := center - (o.HeightM/2.0-o.LateralOffsetM)*ppm
	y := o.RangeM*ppm + float64(v.CameraHeightPx)

	if sprite := r.sprite(o.Label, size, v.WidthPx); sprite != nil {
		dc.DrawImage(sprite, int(math.Round(x)), int(math.Round(y)))
	}

	textX := center - (-o.HeightM/2.0-o.LateralOffsetM)*ppm + 30
	textY := (o.RangeM + o.HeightM/2.0) * ppm
	dc.SetColor(color.Black)
	drawLines(dc, strings.Split(st.Format(), "\n"), textX, textY)
}

func (r *Renderer) drawErrorTable(dc *gg.Context, v geometry.Viewport, lines []string) {
	dc.SetColor(color.Black)
	drawLines(dc, lines, float64(v.WidthPx)-220, 30)
}

// sprite returns the object's icon resized to size×size pixels, or nil
// when it would be invisible or unreasonably large.
func (r *Renderer) sprite(label string, size float64, canvasWidth int) image.Image {
	src, ok := r.sprites[label]
	if !ok {
		return nil
	}
	px := int(math.Round(size))
	if px < 1 || px > maxSpriteCanvasRatio*canvasWidth {
		return nil
	}
	if cached, ok := r.cache[label]; ok && cached.size == px {
		return cached.img
	}
	img := imaging.Resize(src, px, px, imaging.Linear)
	r.cache[label] = sizedSprite{size: px, img: img}
	return img
}

func drawLines(dc *gg.Context, lines []string, x, y float64) {
	lh := dc.FontHeight() * 1.3
	for i, line := range lines {
		dc.DrawString(line, x, y+float64(i)*lh)
	}
}

// precision2 formats v with two significant digits.
func precision2(v float64) string {
	return strconv.FormatFloat(v, 'g', 2, 64)
}

package capture

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/cjeanneret/RangeViz/internal/debug"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
)

// MaxShots bounds the number of frames of one sweep.
const MaxShots = 10000

// Renderer draws one frame of a scene.
type Renderer interface {
	Render(s *scene.Scene) *image.RGBA
}

// Sink stores captured frames.
type Sink interface {
	Save(shot Shot) (string, error)
}

// Shot is one frame of a sweep and the parameter values it was drawn with.
type Shot struct {
	Index  int
	Column int
	Row    int
	Values []scene.Update // column update first, then row update if any
	Image  image.Image
}

// Axis is one swept parameter. Values are raw slider positions; the scene
// clamps and maps them like a user moving the slider.
type Axis struct {
	Param string
	From  float64
	To    float64
	Step  float64
}

// ParseAxis parses "param=from:to:step", e.g. "fov=15:135:10".
func ParseAxis(s string) (Axis, error) {
	param, spec, ok := strings.Cut(s, "=")
	if !ok || param == "" {
		return Axis{}, fmt.Errorf("sweep %q: want param=from:to:step", s)
	}
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return Axis{}, fmt.Errorf("sweep %q: want param=from:to:step", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("sweep %q: %w", s, err)
		}
		v[i] = f
	}
	a := Axis{Param: strings.TrimSpace(param), From: v[0], To: v[1], Step: v[2]}
	if _, err := a.Values(); err != nil {
		return Axis{}, err
	}
	return a, nil
}

// Values lists From, From±Step, ... up to To inclusive. The direction
// follows the sign of To-From; Step must be positive.
func (a Axis) Values() ([]float64, error) {
	for _, v := range []float64{a.From, a.To, a.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("sweep %s: values must be finite", a.Param)
		}
	}
	if a.Step <= 0 {
		return nil, fmt.Errorf("sweep %s: step must be > 0, got %g", a.Param, a.Step)
	}
	span := math.Abs(a.To - a.From)
	n := int(math.Floor(span/a.Step+1e-9)) + 1
	if n > MaxShots {
		return nil, fmt.Errorf("sweep %s: %d values, limit is %d", a.Param, n, MaxShots)
	}
	dir := 1.0
	if a.To < a.From {
		dir = -1
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = a.From + dir*float64(i)*a.Step
	}
	return values, nil
}

// Sequence renders a scene while stepping its parameters, like a pan/tilt
// head shooting a photo at every grid position.
type Sequence struct {
	scene    *scene.Scene
	renderer Renderer
	sink     Sink
}

func NewSequence(s *scene.Scene, r Renderer, sink Sink) *Sequence {
	return &Sequence{
		scene:    s,
		renderer: r,
		sink:     sink,
	}
}

// GridParams defines the swept axes. Rows is optional; without it the
// sweep is a single row.
type GridParams struct {
	Columns Axis
	Rows    *Axis
}

// RunGrid captures one frame per grid position in columns (serpentine
// pattern) and returns the number of frames saved:
// Column 0: rows first to last, then next column value
// Column 1: rows last to first, then next column value
// etc.
func (s *Sequence) RunGrid(ctx context.Context, p GridParams) (int, error) {
	cols, err := p.Columns.Values()
	if err != nil {
		return 0, err
	}
	rows := []float64{math.NaN()}
	if p.Rows != nil {
		if rows, err = p.Rows.Values(); err != nil {
			return 0, err
		}
	}
	total := len(cols) * len(rows)
	if total > MaxShots {
		return 0, fmt.Errorf("sweep has %d frames, limit is %d", total, MaxShots)
	}
	debug.Grid(len(cols), len(rows), total)

	shots := 0
	for col, cv := range cols {
		colUpdate, err := s.apply(p.Columns.Param, cv)
		if err != nil {
			return shots, err
		}

		// Determine row direction based on column (even = forward, odd = backward)
		forward := col%2 == 0
		direction := "backward"
		if forward {
			direction = "forward"
		}
		debug.Column(col+1, len(cols), direction)

		for i := range rows {
			select {
			case <-ctx.Done():
				return shots, ctx.Err()
			default:
			}

			row := i
			if !forward {
				row = len(rows) - 1 - i
			}
			values := []scene.Update{colUpdate}
			if p.Rows != nil {
				u, err := s.apply(p.Rows.Param, rows[row])
				if err != nil {
					return shots, err
				}
				values = append(values, u)
			}

			shot := Shot{
				Index:  shots,
				Column: col,
				Row:    row,
				Values: values,
				Image:  s.renderer.Render(s.scene),
			}
			path, err := s.sink.Save(shot)
			if err != nil {
				return shots, fmt.Errorf("save frame %d: %w", shot.Index, err)
			}
			debug.Shot(col+1, row+1, path)
			shots++
		}
	}
	return shots, nil
}

func (s *Sequence) apply(param string, value float64) (scene.Update, error) {
	u, err := s.scene.Apply(scene.NewParamChanged(param, value))
	if err != nil {
		return scene.Update{}, fmt.Errorf("sweep %s: %w", param, err)
	}
	debug.Param(param, u.Raw, u.Stored)
	return u, nil
}

// Package scene holds the mutable parameter model shared by the controls
// and the render loop. A Scene is not safe for concurrent use; the render
// loop owns it and applies events between frames.
package scene

import (
	"fmt"
	"math"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/logic/geometry"
)

// Slider bounds of the built-in controls.
const (
	FOVMin, FOVMax, FOVStep                   = 15.0, 135.0, 1.0
	BaselineMin, BaselineMax, BaselineStep    = 0.1, 3.0, 0.1
	ImageSizeMin, ImageSizeMax, ImageSizeStep = 1e6, 25e6, 0.1e6
	RangeSliderMin, RangeSliderMax            = 0.1, 25.0
	RangeSliderStep                           = 0.1
)

// Scene is the single explicit configuration of one session.
type Scene struct {
	Camera         geometry.Camera
	Objects        []geometry.DetectionObject
	Viewport       geometry.Viewport
	ErrorRanges    []float64
	PixelsPerMeter float64
}

// New builds a scene from configuration.
func New(cfg *config.Config) (*Scene, error) {
	s := &Scene{}
	if err := s.Reset(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset replaces every parameter with the configured ones.
func (s *Scene) Reset(cfg *config.Config) error {
	cam := geometry.Camera{
		BaselineM:   cfg.Camera.BaselineM,
		FOVDeg:      cfg.Camera.FOVDeg,
		ImageSizePx: cfg.Camera.ImageSizePx,
	}
	if err := cam.Validate(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	objects := make([]geometry.DetectionObject, len(cfg.Objects))
	for i, oc := range cfg.Objects {
		o := geometry.DetectionObject{
			Label:          oc.Label,
			Icon:           oc.Icon,
			RangeM:         oc.RangeM,
			LateralOffsetM: oc.LateralOffsetM,
			HeightM:        oc.HeightM,
			AreaM2:         oc.AreaM2,
		}
		if err := o.Validate(); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		objects[i] = o
	}

	s.Camera = cam
	s.Objects = objects
	s.Viewport = geometry.Viewport{
		WidthPx:        cfg.Canvas.WidthPx,
		HeightPx:       cfg.Canvas.HeightPx,
		CameraHeightPx: cfg.Canvas.CameraHeightPx,
	}
	s.ErrorRanges = append([]float64(nil), cfg.Defaults.ErrorRangesM...)
	s.UpdateScale()
	return nil
}

// UpdateScale recomputes and stores the pixels-per-meter factor.
func (s *Scene) UpdateScale() float64 {
	s.PixelsPerMeter = s.Viewport.UpdateScale(s.Camera)
	return s.PixelsPerMeter
}

// Controls returns the slider definitions with their current position and label.
func (s *Scene) Controls() []Control {
	controls := []Control{
		{Param: ParamFOV, Name: "FOV", Min: FOVMin, Max: FOVMax, Step: FOVStep,
			Raw: s.Camera.FOVDeg, Label: fovLabel(s.Camera.FOVDeg)},
		{Param: ParamBaseline, Name: "Baseline", Min: BaselineMin, Max: BaselineMax, Step: BaselineStep,
			Raw: s.Camera.BaselineM, Label: baselineLabel(s.Camera.BaselineM)},
		{Param: ParamImageSize, Name: "Image Size", Min: ImageSizeMin, Max: ImageSizeMax, Step: ImageSizeStep,
			Raw: s.Camera.ImageSizePx, Label: imageSizeLabel(s.Camera.ImageSizePx)},
	}
	for i, o := range s.Objects {
		controls = append(controls, Control{
			Param:   RangeParam(i),
			Name:    o.Label + " Range",
			Min:     RangeSliderMin,
			Max:     RangeSliderMax,
			Step:    RangeSliderStep,
			Mapping: Square,
			Raw:     Square.Invert(o.RangeM),
			Label:   rangeLabel(o.Label, o.RangeM),
			object:  i,
		})
	}
	return controls
}

func (s *Scene) control(param string) (Control, bool) {
	for _, c := range s.Controls() {
		if c.Param == param {
			return c, true
		}
	}
	return Control{}, false
}

// Apply writes a parameter change into the scene. The raw value is clamped
// to the control bounds, then mapped (object ranges store slider²).
func (s *Scene) Apply(ev ParamChanged) (Update, error) {
	if err := ev.Validate(); err != nil {
		return Update{}, err
	}
	ctl, ok := s.control(ev.Param)
	if !ok {
		return Update{}, fmt.Errorf("unknown param %q", ev.Param)
	}

	raw := ctl.Clamp(ev.Value)
	stored := ctl.Mapping.Apply(raw)
	var label string
	switch ev.Param {
	case ParamFOV:
		s.Camera.FOVDeg = stored
		label = fovLabel(stored)
	case ParamBaseline:
		s.Camera.BaselineM = stored
		label = baselineLabel(stored)
	case ParamImageSize:
		s.Camera.ImageSizePx = stored
		label = imageSizeLabel(stored)
	default:
		o := &s.Objects[ctl.object]
		o.RangeM = stored
		label = rangeLabel(o.Label, stored)
	}
	return Update{ID: ev.ID, Param: ev.Param, Raw: raw, Stored: stored, Label: label}, nil
}

// ObjectStats are the live figures drawn next to an object.
type ObjectStats struct {
	Label         string  `json:"label"`
	RangeM        float64 `json:"range_m"`
	AreaM2        float64 `json:"area_m2"`
	StereoReturns float64 `json:"stereo_returns"`
	LidarReturns  float64 `json:"lidar_returns"`
}

// Stats is a read-only copy of every derived quantity of the scene.
type Stats struct {
	Camera         geometry.Camera       `json:"camera"`
	FirstOverlapM  float64               `json:"first_overlap_m"`
	FocalLengthPx  float64               `json:"focal_length_px"`
	PixelsPerMeter float64               `json:"pixels_per_meter"`
	Objects        []ObjectStats         `json:"objects"`
	ErrorTable     []geometry.ErrorBound `json:"error_table"`
}

// Snapshot computes the stats of the current parameters.
func (s *Scene) Snapshot() Stats {
	st := Stats{
		Camera:         s.Camera,
		FirstOverlapM:  s.Camera.FirstOverlapRange(),
		FocalLengthPx:  geometry.FocalLengthPixels(s.Camera),
		PixelsPerMeter: s.PixelsPerMeter,
		Objects:        make([]ObjectStats, len(s.Objects)),
		ErrorTable:     geometry.ErrorTable(s.Camera, s.ErrorRanges),
	}
	for i, o := range s.Objects {
		st.Objects[i] = ObjectStats{
			Label:         o.Label,
			RangeM:        o.RangeM,
			AreaM2:        o.AreaM2,
			StereoReturns: o.ExpectedStereoReturns(s.Camera),
			LidarReturns:  o.ExpectedLidarReturns(),
		}
	}
	return st
}

// FormatErrorTable renders the error-bound table as text lines.
func (st Stats) FormatErrorTable() []string {
	lines := make([]string, 0, len(st.ErrorTable)+1)
	lines = append(lines, "Error Bounds:")
	for _, b := range st.ErrorTable {
		lines = append(lines, geometry.FormatErrorBound(b))
	}
	return lines
}

// Format renders the stats block drawn next to an object.
func (o ObjectStats) Format() string {
	return fmt.Sprintf("%s\nRange: %.2fm\nCross-sectional Area: %sm^2\nStereo camera returns: %.0f\nReference lidar returns: %.0f",
		o.Label, o.RangeM, formatPrecision(o.AreaM2, 2), o.StereoReturns, o.LidarReturns)
}

func formatPrecision(v float64, digits int) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return formatNumber(v)
	}
	return fmt.Sprintf("%.*g", digits, v)
}

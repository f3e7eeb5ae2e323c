package scene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Mapping converts a raw slider value into the stored model value.
type Mapping int

const (
	// Linear stores the slider value as is.
	Linear Mapping = iota
	// Square stores slider², giving finer control at close range.
	Square
)

// Apply returns the model value for a raw slider value.
func (m Mapping) Apply(raw float64) float64 {
	if m == Square {
		return raw * raw
	}
	return raw
}

// Invert returns the slider value that maps to the model value.
func (m Mapping) Invert(stored float64) float64 {
	if m == Square {
		return math.Sqrt(stored)
	}
	return stored
}

func (m Mapping) String() string {
	if m == Square {
		return "square"
	}
	return "linear"
}

// MarshalText lets mappings appear by name in JSON.
func (m Mapping) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mapping) UnmarshalText(text []byte) error {
	switch string(text) {
	case "linear":
		*m = Linear
	case "square":
		*m = Square
	default:
		return fmt.Errorf("unknown mapping %q", text)
	}
	return nil
}

// Parameter names accepted in ParamChanged events. Object range controls
// use RangeParam(i).
const (
	ParamFOV       = "fov"
	ParamBaseline  = "baseline"
	ParamImageSize = "image_size"
)

// RangeParam returns the parameter name of the i-th object's range slider.
func RangeParam(i int) string {
	return "range." + strconv.Itoa(i)
}

// Control binds one numeric model field to a bounded slider.
type Control struct {
	Param   string  `json:"param"`
	Name    string  `json:"name"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Mapping Mapping `json:"mapping"`
	Raw     float64 `json:"raw"`   // current slider position
	Label   string  `json:"label"` // text shown next to the slider

	object int // index into Scene.Objects for range controls
}

// Clamp bounds a raw slider value to the control range.
func (c Control) Clamp(raw float64) float64 {
	return math.Min(c.Max, math.Max(c.Min, raw))
}

// ParamChanged is emitted by a control when the user moves it.
type ParamChanged struct {
	ID    uuid.UUID `json:"id"`
	Param string    `json:"param"`
	Value float64   `json:"value"` // raw slider value
}

// NewParamChanged creates an event with a fresh ID.
func NewParamChanged(param string, value float64) ParamChanged {
	return ParamChanged{ID: uuid.New(), Param: param, Value: value}
}

// Validate rejects events that cannot be applied to any scene.
func (e ParamChanged) Validate() error {
	if e.Param == "" {
		return fmt.Errorf("param is required")
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Errorf("value for %s must be finite, got %g", e.Param, e.Value)
	}
	return nil
}

// Update describes the result of applying a ParamChanged event.
type Update struct {
	ID     uuid.UUID `json:"id"`
	Param  string    `json:"param"`
	Raw    float64   `json:"raw"`    // clamped slider value
	Stored float64   `json:"stored"` // value written to the model
	Label  string    `json:"label"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fovLabel(fov float64) string {
	return "FOV: " + formatNumber(fov)
}

func baselineLabel(baseline float64) string {
	return "Baseline: " + formatNumber(baseline)
}

func imageSizeLabel(px float64) string {
	return "Image Size: " + formatNumber(px/1e6) + " MP"
}

func rangeLabel(name string, rangeM float64) string {
	return fmt.Sprintf("%s Range: %.2fm", name, rangeM)
}

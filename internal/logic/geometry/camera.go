package geometry

import (
	"fmt"
	"math"
)

// Camera describes a stereo rig of two identical pinhole cameras.
type Camera struct {
	BaselineM   float64 `json:"baseline_m"`    // distance between the camera centers
	FOVDeg      float64 `json:"fov_deg"`       // full horizontal field of view in degrees
	ImageSizePx float64 `json:"image_size_px"` // total pixel count of one image
}

// Validate checks the invariants the formulas rely on:
// fov strictly in (0,180), baseline > 0, image size >= 1.
func (c Camera) Validate() error {
	if !finite(c.FOVDeg) || c.FOVDeg <= 0 || c.FOVDeg >= 180 {
		return fmt.Errorf("fov must be between 0 and 180 degrees (exclusive), got %g", c.FOVDeg)
	}
	if !finite(c.BaselineM) || c.BaselineM <= 0 {
		return fmt.Errorf("baseline must be > 0 m, got %g", c.BaselineM)
	}
	if !finite(c.ImageSizePx) || c.ImageSizePx < 1 {
		return fmt.Errorf("image size must be >= 1 px, got %g", c.ImageSizePx)
	}
	return nil
}

// HalfAngleRad returns half of the field of view in radians.
func (c Camera) HalfAngleRad() float64 {
	return Radians(c.FOVDeg / 2.0)
}

// FirstOverlapRange returns the forward distance at which the two fields
// of view start to intersect, the minimum usable stereo range.
// Formula: (baseline / 2) / tan(fov / 2)
func (c Camera) FirstOverlapRange() float64 {
	return (c.BaselineM / 2.0) / math.Tan(c.HalfAngleRad())
}

// FieldOfViewHalfWidthAt returns the horizontal half-extent of one
// camera's field of view at the given forward distance.
// Formula: tan(fov / 2) × distance
func (c Camera) FieldOfViewHalfWidthAt(distance float64) float64 {
	return math.Tan(c.HalfAngleRad()) * distance
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

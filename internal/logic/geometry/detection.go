package geometry

import (
	"fmt"
	"math"
)

// Reference scanning lidar used for comparison: 1.3 million points per
// second, read out at the stereo frame rate of 5 Hz, with roughly one in
// six points landing on a 1 m² target at 1 m.
const (
	LidarPointsPerSecond = 1.3e6
	LidarFrameRateHz     = 5.0
	LidarAngularFactor   = 6.0
)

// DetectionObject is a labeled target placed in front of the rig.
type DetectionObject struct {
	Label          string  `json:"label"`
	Icon           string  `json:"icon,omitempty"`
	RangeM         float64 `json:"range_m"`          // forward distance
	LateralOffsetM float64 `json:"lateral_offset_m"` // positive = right of the rig center
	HeightM        float64 `json:"height_m"`
	AreaM2         float64 `json:"area_m2"` // cross-sectional area
}

// Validate checks that the return-count heuristics are defined for o.
func (o DetectionObject) Validate() error {
	if !finite(o.RangeM) || o.RangeM <= 0 {
		return fmt.Errorf("%s: range must be > 0 m, got %g", o.Label, o.RangeM)
	}
	if !finite(o.AreaM2) || o.AreaM2 <= 0 {
		return fmt.Errorf("%s: area must be > 0 m², got %g", o.Label, o.AreaM2)
	}
	if !finite(o.HeightM) || o.HeightM <= 0 {
		return fmt.Errorf("%s: height must be > 0 m, got %g", o.Label, o.HeightM)
	}
	if !finite(o.LateralOffsetM) {
		return fmt.Errorf("%s: lateral offset must be finite", o.Label)
	}
	return nil
}

// SphericalCapArea returns the solid angle (steradians) of a cone with the
// camera's half field of view: (1 - cos(fov/2)) × 2π.
func SphericalCapArea(cam Camera) float64 {
	return (1.0 - math.Cos(cam.HalfAngleRad())) * 2.0 * math.Pi
}

// ExpectedStereoReturns estimates how many points the stereo camera resolves
// on the object. The image pixels are treated as spread uniformly over the
// spherical cap of the field of view, and the object covers area/range² of it.
//
// This is an order-of-magnitude heuristic, not a sensor model.
func (o DetectionObject) ExpectedStereoReturns(cam Camera) float64 {
	return cam.ImageSizePx * o.AreaM2 / (o.RangeM * o.RangeM * SphericalCapArea(cam))
}

// ExpectedLidarReturns estimates the points the reference lidar puts on the
// object in one frame. Same caveat as ExpectedStereoReturns.
func (o DetectionObject) ExpectedLidarReturns() float64 {
	pointsPerFrame := LidarPointsPerSecond / LidarFrameRateHz
	returnsFor1m2At1m := pointsPerFrame / LidarAngularFactor
	return returnsFor1m2At1m * o.AreaM2 / (o.RangeM * o.RangeM)
}

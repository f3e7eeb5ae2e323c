package geometry

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// DisparityResolution is the smallest detectable disparity step in pixels.
const DisparityResolution = 0.1

// DefaultReferenceRanges are the rows of the error-bound table, in meters.
var DefaultReferenceRanges = []float64{5, 10, 20, 50, 100, 200, 500}

// ErrorBound is the worst-case depth error at one range.
type ErrorBound struct {
	RangeM float64 `json:"range_m"`
	ErrorM float64 `json:"error_m"`
}

// FocalLengthPixels returns the effective focal length in pixels, taking
// the image as square: (sqrt(imageSize) / 2) / tan(fov / 2).
func FocalLengthPixels(cam Camera) float64 {
	halfWidthPx := math.Sqrt(cam.ImageSizePx) / 2.0
	return halfWidthPx / math.Tan(cam.HalfAngleRad())
}

// RangeErrorBound returns the depth error of stereo triangulation at
// queryRange: range² × disparityResolution / (focalLengthPx × baseline).
// It grows quadratically with range and shrinks with baseline and focal length.
func RangeErrorBound(cam Camera, queryRange float64) float64 {
	return queryRange * queryRange * DisparityResolution / (FocalLengthPixels(cam) * cam.BaselineM)
}

// ErrorTable evaluates RangeErrorBound at every reference range.
func ErrorTable(cam Camera, ranges []float64) []ErrorBound {
	table := make([]ErrorBound, len(ranges))
	for i, r := range ranges {
		table[i] = ErrorBound{RangeM: r, ErrorM: RangeErrorBound(cam, r)}
	}
	return table
}

// ErrorCurve samples RangeErrorBound at n evenly spaced ranges between
// minRange and maxRange inclusive.
func ErrorCurve(cam Camera, minRange, maxRange float64, n int) ([]ErrorBound, error) {
	if n < 2 {
		return nil, fmt.Errorf("error curve needs at least 2 samples, got %d", n)
	}
	if !(minRange > 0) || !(maxRange > minRange) {
		return nil, fmt.Errorf("error curve range must satisfy 0 < min < max, got [%g, %g]", minRange, maxRange)
	}
	ranges := floats.Span(make([]float64, n), minRange, maxRange)
	return ErrorTable(cam, ranges), nil
}

// FormatErrorBound renders one table row. Ranges below 20 m keep two
// significant digits since their errors are millimetric; the rest use
// two decimals.
func FormatErrorBound(b ErrorBound) string {
	var value string
	if b.RangeM < 20 {
		value = strconv.FormatFloat(b.ErrorM, 'g', 2, 64)
	} else {
		value = strconv.FormatFloat(b.ErrorM, 'f', 2, 64)
	}
	return fmt.Sprintf("%sm: %s m", strconv.FormatFloat(b.RangeM, 'f', -1, 64), value)
}

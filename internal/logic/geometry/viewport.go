package geometry

// OverlapScaleDivisor places the first-overlap line at 1/100th of the
// usable canvas height.
const OverlapScaleDivisor = 100.0

// Viewport is the canvas the rig is drawn on. The rig sits centered at the
// top edge; forward distance grows downward.
type Viewport struct {
	WidthPx        int
	HeightPx       int
	CameraHeightPx int
}

// UsableHeight returns the canvas height below the camera boxes.
func (v Viewport) UsableHeight() float64 {
	return float64(v.HeightPx - v.CameraHeightPx)
}

// UpdateScale returns the pixels-per-meter factor that keeps the
// first-overlap range at a fixed fraction of the canvas height.
// Formula: (height - cameraHeight) / firstOverlap / 100
func (v Viewport) UpdateScale(cam Camera) float64 {
	return v.UsableHeight() / cam.FirstOverlapRange() / OverlapScaleDivisor
}

// WorldToCanvas maps a point in rig coordinates (lateral meters, forward
// meters) to canvas pixels.
func (v Viewport) WorldToCanvas(lateralM, forwardM, ppm float64) (x, y float64) {
	x = float64(v.WidthPx)/2.0 + lateralM*ppm
	y = forwardM*ppm + float64(v.CameraHeightPx)
	return x, y
}

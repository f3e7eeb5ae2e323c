package geometry

import (
	"math"
	"testing"
)

func refViewport() Viewport {
	return Viewport{WidthPx: 1200, HeightPx: 1200, CameraHeightPx: 10}
}

// (1200 - 10) / 0.78484 / 100 ~ 15.1623 px/m
func TestViewport_UpdateScale_Reference(t *testing.T) {
	got := refViewport().UpdateScale(refCamera())
	want := 15.162272207218338
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("UpdateScale() = %v, want %v", got, want)
	}
}

func TestViewport_OverlapLineAtFixedFraction(t *testing.T) {
	v := refViewport()
	for _, cam := range []Camera{
		{BaselineM: 0.1, FOVDeg: 15, ImageSizePx: 1e6},
		{BaselineM: 1, FOVDeg: 65, ImageSizePx: 5.4e6},
		{BaselineM: 3, FOVDeg: 135, ImageSizePx: 25e6},
	} {
		ppm := v.UpdateScale(cam)
		drawn := cam.FirstOverlapRange() * ppm
		if math.Abs(drawn-v.UsableHeight()/OverlapScaleDivisor) > 1e-9 {
			t.Errorf("cam %+v: overlap drawn at %v px, want %v", cam, drawn, v.UsableHeight()/OverlapScaleDivisor)
		}
		if ppm <= 0 || math.IsInf(ppm, 0) {
			t.Errorf("cam %+v: scale %v should be finite and positive", cam, ppm)
		}
	}
}

func TestViewport_WorldToCanvas(t *testing.T) {
	v := refViewport()
	x, y := v.WorldToCanvas(0, 0, 20)
	if x != 600 || y != 10 {
		t.Errorf("origin -> (%v, %v), want (600, 10)", x, y)
	}
	x, y = v.WorldToCanvas(-1, 2, 20)
	if x != 580 || y != 50 {
		t.Errorf("(-1, 2) -> (%v, %v), want (580, 50)", x, y)
	}
}

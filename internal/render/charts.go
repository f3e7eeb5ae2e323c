package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cjeanneret/RangeViz/internal/logic/geometry"
)

// ChartOptions selects the plotted range interval.
type ChartOptions struct {
	MinRangeM float64
	MaxRangeM float64
	Samples   int
}

// DefaultChartOptions covers the reference table ranges.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{MinRangeM: 1, MaxRangeM: 500, Samples: 200}
}

// WriteErrorChartPNG plots the error bound against range for cam, with the
// reference table rows as markers.
func WriteErrorChartPNG(w io.Writer, cam geometry.Camera, reference []float64, o ChartOptions) error {
	curve, err := geometry.ErrorCurve(cam, o.MinRangeM, o.MaxRangeM, o.Samples)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Range error bound (baseline %.2f m, FOV %.0f°, %.1f MP)",
		cam.BaselineM, cam.FOVDeg, cam.ImageSizePx/1e6)
	p.X.Label.Text = "Range (m)"
	p.Y.Label.Text = "Error bound (m)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(toXYs(curve))
	if err != nil {
		return fmt.Errorf("create curve: %w", err)
	}
	line.Color = rigBlue
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("error bound", line)

	if len(reference) > 0 {
		points, err := plotter.NewScatter(toXYs(geometry.ErrorTable(cam, reference)))
		if err != nil {
			return fmt.Errorf("create reference points: %w", err)
		}
		points.Color = color.Black
		p.Add(points)
		p.Legend.Add("table ranges", points)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WriteErrorChartHTML writes an interactive line chart of the same curve.
func WriteErrorChartHTML(w io.Writer, cam geometry.Camera, o ChartOptions) error {
	curve, err := geometry.ErrorCurve(cam, o.MinRangeM, o.MaxRangeM, o.Samples)
	if err != nil {
		return err
	}

	data := make([]opts.LineData, len(curve))
	for i, b := range curve {
		data[i] = opts.LineData{Value: []interface{}{b.RangeM, b.ErrorM}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Range error bound", Width: "900px", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Range error bound",
			Subtitle: fmt.Sprintf("baseline=%.2fm fov=%.0f° image=%.1fMP", cam.BaselineM, cam.FOVDeg, cam.ImageSizePx/1e6),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Range (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Error (m)"}),
	)
	line.AddSeries("error bound", data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func toXYs(bounds []geometry.ErrorBound) plotter.XYs {
	pts := make(plotter.XYs, len(bounds))
	for i, b := range bounds {
		pts[i] = plotter.XY{X: b.RangeM, Y: b.ErrorM}
	}
	return pts
}

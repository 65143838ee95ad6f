// Package chart renders probability maps for people: a static PNG through
// gonum/plot and an interactive HTML page through go-echarts. Breakpoints are
// drawn as vertical markers so the intervals whose probabilities were
// integrated are visible on the curve.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg" // png canvas

	"github.com/atmx/option-engine/internal/model"
)

// ErrNoPoints is returned when there is nothing to draw.
var ErrNoPoints = errors.New("chart: no points to draw")

// Options control chart labels and size.
type Options struct {
	Title  string
	Width  vg.Length // PNG only
	Height vg.Length // PNG only
}

// DefaultOptions returns a 6x4 inch chart titled for a probability map.
func DefaultOptions() Options {
	return Options{
		Title:  "Probability map",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

var (
	curveColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	markerColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// WritePNG draws the density curve with a dashed vertical line at every
// breakpoint and writes the image as PNG.
func WritePNG(w io.Writer, points []model.Point, breakpoints []float64, o Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	o = o.withDefaults()

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Price"
	p.Y.Label.Text = "Density of ln(price)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	maxY := 0.0
	for i, pt := range points {
		xys[i].X = pt.X
		xys[i].Y = pt.Y
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	curve, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("chart: density curve: %w", err)
	}
	curve.LineStyle.Color = curveColor
	curve.LineStyle.Width = vg.Points(1.5)
	p.Add(curve)
	p.Legend.Add("density", curve)

	for _, bp := range breakpoints {
		marker, err := plotter.NewLine(plotter.XYs{{X: bp, Y: 0}, {X: bp, Y: maxY}})
		if err != nil {
			return fmt.Errorf("chart: breakpoint %g: %w", bp, err)
		}
		marker.LineStyle.Color = markerColor
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
	}

	wt, err := p.WriterTo(o.Width, o.Height, "png")
	if err != nil {
		return fmt.Errorf("chart: png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write png: %w", err)
	}
	return nil
}

// WriteHTML renders an interactive line chart of the density curve with
// breakpoint mark lines.
func WriteHTML(w io.Writer, points []model.Point, breakpoints []float64, o Options) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	o = o.withDefaults()

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "price", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "density", Type: "value"}),
	)

	data := make([]opts.LineData, len(points))
	for i, pt := range points {
		data[i] = opts.LineData{Value: []interface{}{pt.X, pt.Y}}
	}

	series := []charts.SeriesOpts{}
	for _, bp := range breakpoints {
		series = append(series, charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
			Name:  fmt.Sprintf("%g", bp),
			XAxis: bp,
		}))
	}
	line.AddSeries("density", data, series...)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("chart: render html: %w", err)
	}
	return nil
}

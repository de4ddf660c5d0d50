// Package plots renders training curves as PNG files.
package plots

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Series is one named curve. X and Y must have the same length.
type Series struct {
	Name string
	X, Y []float64
}

var palette = []color.RGBA{
	{R: 20, G: 80, B: 200, A: 220},
	{R: 200, G: 30, B: 30, A: 220},
	{R: 40, G: 120, B: 40, A: 220},
	{R: 120, G: 120, B: 120, A: 220},
}

// LossCurve writes a PNG at path with one line per series. The parent
// directory is created if needed.
func LossCurve(path, title, xLabel string, series ...Series) error {
	if len(series) == 0 {
		return errors.New("no series to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "loss"

	var all plotter.XYs
	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q: %d x values, %d y values", s.Name, len(s.X), len(s.Y))
		}
		if len(s.X) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.X))
		for j := range s.X {
			xys[j] = plotter.XY{X: s.X[j], Y: s.Y[j]}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return err
		}
		col := palette[i%len(palette)]
		line.Color = col
		line.Width = vg.Points(1.2)
		points.GlyphStyle.Color = col
		points.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(s.Name, line)
		all = append(all, xys...)
	}
	if len(all) == 0 {
		return errors.New("all series are empty")
	}

	p.Add(plotter.NewGrid())
	xmin, xmax, ymin, ymax := autoRange(all)
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax
	p.Legend.Top = true

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// autoRange computes padded min/max for X and Y for a set of points.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.06
	pady := (ymax - ymin) * 0.06
	if padx == 0 {
		padx = 1.0
	}
	if pady == 0 {
		pady = 1.0
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}

package chart

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/luki/heatlog/internal/history"
)

// DefaultMaxLegend is the largest device count that still gets a legend.
const DefaultMaxLegend = 4

// ErrNoData is returned when a session has no rows to plot.
var ErrNoData = errors.New("no data to plot")

// PlotOptions controls PNG chart output.
type PlotOptions struct {
	Title     string
	MaxLegend int                 // legend hidden above this many devices; 0 hides it
	Width     vg.Length           // defaults to 10in
	Height    vg.Length           // defaults to 5in
	Label     func(string) string // display name for a device id
	Thresh    Thresholds
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 10 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 5 * vg.Inch
	}
	if o.Label == nil {
		o.Label = func(s string) string { return s }
	}
	return o
}

// Plot builds a line chart with one line per device, time on the x axis.
// Missing readings break a device's line into separate segments.
func Plot(s *history.Store, opts PlotOptions) (*plot.Plot, error) {
	opts = opts.withDefaults()
	if s == nil {
		return nil, ErrNoData
	}
	if _, _, ok := s.Range(); !ok {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "temperature (°C)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04", Time: plot.UnixTimeIn(time.Local)}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false

	showLegend := ShowLegend(s.Len(), opts.MaxLegend)

	for i, device := range s.Order {
		c := plotutil.Color(i)
		first := true
		for _, seg := range Segments(s.Get(device).Points) {
			line, err := lineFor(seg, c)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", device, err)
			}
			p.Add(line)
			if first && showLegend {
				p.Legend.Add(opts.Label(device), line)
			}
			first = false
		}
	}

	for _, level := range []struct {
		v   float64
		on  bool
		col color.Color
	}{
		{opts.Thresh.High, opts.Thresh.HasHigh, color.RGBA{R: 255, G: 165, A: 255}},
		{opts.Thresh.Crit, opts.Thresh.HasCrit, color.RGBA{R: 220, A: 255}},
	} {
		if !level.on {
			continue
		}
		fn := plotter.NewFunction(func(float64) float64 { return level.v })
		fn.Color = level.col
		fn.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(fn)
		if level.v+1 > p.Y.Max {
			p.Y.Max = level.v + 1
		}
	}

	return p, nil
}

// ShowLegend reports whether a chart with n devices gets a legend. A max of
// zero never shows one.
func ShowLegend(n, max int) bool {
	return max > 0 && n <= max
}

// SavePNG renders the store and writes it to path. The format follows the
// file extension.
func SavePNG(s *history.Store, path string, opts PlotOptions) error {
	opts = opts.withDefaults()
	p, err := Plot(s, opts)
	if err != nil {
		return err
	}
	return p.Save(opts.Width, opts.Height, path)
}

// Segments splits a series at missing readings. Each returned run holds
// only real readings.
func Segments(points []history.Point) [][]history.Point {
	var segs [][]history.Point
	var cur []history.Point
	for _, p := range points {
		if p.Missing {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

func lineFor(seg []history.Point, c color.Color) (*plotter.Line, error) {
	xys := make(plotter.XYs, len(seg))
	for i, p := range seg {
		xys[i].X = float64(p.Time.Unix())
		xys[i].Y = p.Temp
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	return line, nil
}

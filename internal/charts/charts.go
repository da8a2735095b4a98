// Package charts renders the lab's absorbance line charts as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/RMahshie/beerlab/internal/lab"
)

// Chart kinds
const (
	KindWavelength    = "wavelength"
	KindConcentration = "concentration"
)

// ErrInsufficientData is returned when a table has too few rows to draw a line
var ErrInsufficientData = errors.New("insufficient data for plotting")

// Default canvas size in pixels
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

var (
	measuredColor = drawing.ColorFromHex("0074d9")
	fitColor      = drawing.ColorFromHex("ff4136")
)

// InsufficientDataNotice returns the message shown in place of a chart of the given kind
func InsufficientDataNotice(kind string) string {
	switch kind {
	case KindWavelength:
		return "Insufficient data for plotting. Please provide data for λmax determination."
	default:
		return "Insufficient data for plotting. Please provide data for A and %T determination."
	}
}

// Plottable reports whether the table has at least two distinct x values to draw a line through
func Plottable(t *lab.Table) bool {
	if t == nil || t.Len() < 2 {
		return false
	}
	first := t.Points[0].X
	for _, p := range t.Points[1:] {
		if p.X != first {
			return true
		}
	}
	return false
}

// Options controls the rendered image
type Options struct {
	Width  int
	Height int
	// Fit overlays the fitted line on the measured points when set
	Fit *lab.Fit
}

// Render draws absorbance against the table's independent column and returns PNG bytes
func Render(kind string, t *lab.Table, opts Options) ([]byte, error) {
	if !Plottable(t) {
		return nil, fmt.Errorf("%s chart: %w", kind, ErrInsufficientData)
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	xName, title := axisName(kind)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    lab.ColumnAbsorbance,
			XValues: t.Xs(),
			YValues: t.Absorbances(),
			Style: chart.Style{
				StrokeColor: measuredColor,
				StrokeWidth: 2,
				DotColor:    measuredColor,
				DotWidth:    3,
			},
		},
	}

	if opts.Fit != nil {
		series = append(series, fitSeries(t, opts.Fit))
	}

	ch := chart.Chart{
		Title:      title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName},
		YAxis:      chart.YAxis{Name: lab.ColumnAbsorbance, Range: flatRange(t.Absorbances())},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// fitSeries draws the fitted line across the measured concentration range
func fitSeries(t *lab.Table, fit *lab.Fit) chart.ContinuousSeries {
	xs := t.Xs()
	sort.Float64s(xs)
	lo, hi := xs[0], xs[len(xs)-1]

	return chart.ContinuousSeries{
		Name:    "Fit",
		XValues: []float64{lo, hi},
		YValues: []float64{fit.Predict(lo), fit.Predict(hi)},
		Style: chart.Style{
			StrokeColor:     fitColor,
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5, 5},
		},
	}
}

// flatRange pads a constant series so the y axis keeps a non-zero span
func flatRange(ys []float64) chart.Range {
	lo, hi := ys[0], ys[0]
	for _, y := range ys[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func axisName(kind string) (xName, title string) {
	if kind == KindWavelength {
		return lab.ColumnWavelength, "Absorbance vs. Wavelength"
	}
	return lab.ColumnConcentration, "Absorbance vs. Concentration"
}

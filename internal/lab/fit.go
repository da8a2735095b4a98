package lab

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientData is returned when there are too few points to fit a line
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput is returned when the points do not determine a line
	ErrDegenerateInput = errors.New("degenerate input")
)

// Fit holds the Beer's Law parameters for absorbance = Slope*concentration + Intercept
type Fit struct {
	Slope     float64
	Intercept float64
	// Covariance of (slope, intercept); nil when there are no residual degrees of freedom
	Covariance *[2][2]float64
	// RSquared is NaN when every absorbance is identical
	RSquared float64
	N        int
}

// FitLine fits a straight line to the table by ordinary least squares.
func FitLine(t *Table) (*Fit, error) {
	n := t.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points to fit a line, got %d", ErrInsufficientData, n)
	}

	xs := t.Xs()
	ys := t.Absorbances()

	mean := stat.Mean(xs, nil)
	var sxx float64
	for _, x := range xs {
		sxx += (x - mean) * (x - mean)
	}
	if sxx == 0 || math.IsNaN(sxx) || math.IsInf(sxx, 0) {
		return nil, fmt.Errorf("%w: all %s values are identical", ErrDegenerateInput, strings.ToLower(t.XColumn))
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) || math.IsNaN(intercept) || math.IsInf(intercept, 0) {
		return nil, fmt.Errorf("%w: fit did not converge to finite parameters", ErrDegenerateInput)
	}

	fit := &Fit{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
		RSquared:  stat.RSquared(xs, ys, nil, intercept, slope),
	}

	// Residual variance scales the covariance the same way curve_fit does with relative sigma
	if dof := n - 2; dof > 0 {
		var ssr float64
		for i, x := range xs {
			r := ys[i] - (slope*x + intercept)
			ssr += r * r
		}
		s2 := ssr / float64(dof)
		varSlope := s2 / sxx
		cov := -mean * varSlope
		varIntercept := s2 * (1/float64(n) + mean*mean/sxx)
		fit.Covariance = &[2][2]float64{
			{varSlope, cov},
			{cov, varIntercept},
		}
	}

	return fit, nil
}

// Predict returns the absorbance the fitted line gives for concentration c
func (f *Fit) Predict(c float64) float64 {
	return f.Slope*c + f.Intercept
}

// Concentration inverts the fit for a measured absorbance.
// ok is false when the slope is zero and the concentration is undefined.
func (f *Fit) Concentration(absorbance float64) (c float64, ok bool) {
	if f.Slope == 0 {
		return 0, false
	}
	c = (absorbance - f.Intercept) / f.Slope
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, false
	}
	return c, true
}

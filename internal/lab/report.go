package lab

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// KnownHeader is the header line printed above the known-concentration rows
const KnownHeader = "Sr No | Conc. of solution(C) | Absorbance (A) | Transmission (%T)"

// Undefined is printed in place of a concentration that cannot be computed
const Undefined = "undefined"

// KnownRow is one row of the known-concentration report
type KnownRow struct {
	Index         int
	Concentration float64
	Absorbance    float64
	Transmittance float64
}

// Line formats the row as "<index> | <concentration> | <absorbance> | <transmittance>"
func (r KnownRow) Line() string {
	return strings.Join([]string{
		strconv.Itoa(r.Index),
		FormatFloat(r.Concentration),
		FormatFloat(r.Absorbance),
		FormatFloat(r.Transmittance),
	}, " | ")
}

// UnknownSample is the back-computed result for a user-supplied absorbance
type UnknownSample struct {
	Absorbance    float64
	Concentration float64
	// Defined is false when the fitted slope is zero
	Defined       bool
	Transmittance float64
}

// Line formats the sample as "Unknown | <concentration> | <absorbance> | <transmittance>"
func (u UnknownSample) Line() string {
	conc := Undefined
	if u.Defined {
		conc = FormatFloat(u.Concentration)
	}
	return strings.Join([]string{"Unknown", conc, FormatFloat(u.Absorbance), FormatFloat(u.Transmittance)}, " | ")
}

// Transmittance approximates %T as 100 - A
func Transmittance(absorbance float64) float64 {
	return 100 - absorbance
}

// KnownRows derives transmittance for every row of the concentration table
func KnownRows(t *Table) []KnownRow {
	rows := make([]KnownRow, 0, t.Len())
	for i, p := range t.Points {
		rows = append(rows, KnownRow{
			Index:         i + 1,
			Concentration: p.X,
			Absorbance:    p.Absorbance,
			Transmittance: Transmittance(p.Absorbance),
		})
	}
	return rows
}

// Unknown back-computes the concentration of a sample from its absorbance
func Unknown(fit *Fit, absorbance float64) UnknownSample {
	c, ok := fit.Concentration(absorbance)
	return UnknownSample{
		Absorbance:    absorbance,
		Concentration: c,
		Defined:       ok,
		Transmittance: Transmittance(absorbance),
	}
}

// ParameterLines returns the slope and intercept report lines
func ParameterLines(fit *Fit) []string {
	return []string{
		"A (slope): " + FormatFloat(fit.Slope),
		"b (intercept): " + FormatFloat(fit.Intercept),
	}
}

// FormatFloat prints v in its shortest round-trip form, keeping a trailing ".0"
// on integral values and switching to exponent form for very small or large magnitudes.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// LambdaMax is the state of the λmax selector for one render
type LambdaMax struct {
	// Options lists every wavelength in table order, duplicates included
	Options []float64
	// Selected is nil when the table is empty
	Selected *float64
	// SelectedAbsorbance is the absorbance of the first row at the selected wavelength
	SelectedAbsorbance *float64
	// Peak is the first wavelength with the highest absorbance
	Peak           *float64
	PeakAbsorbance *float64
}

// MatchesPeak reports whether the selection agrees with the measured peak
func (l LambdaMax) MatchesPeak() bool {
	return l.Selected != nil && l.Peak != nil && *l.Selected == *l.Peak
}

// SelectLambdaMax resolves the requested λmax against the wavelength table.
// A request that is nil or not among the options falls back to the first option.
func SelectLambdaMax(t *Table, requested *float64) LambdaMax {
	sel := LambdaMax{Options: t.Xs()}
	if t.Empty() {
		return sel
	}

	selected := t.Points[0]
	if requested != nil {
		for _, p := range t.Points {
			if p.X == *requested {
				selected = p
				break
			}
		}
	}
	sel.Selected = &selected.X
	sel.SelectedAbsorbance = &selected.Absorbance

	peak := t.Points[0]
	for _, p := range t.Points[1:] {
		if p.Absorbance > peak.Absorbance {
			peak = p
		}
	}
	sel.Peak = &peak.X
	sel.PeakAbsorbance = &peak.Absorbance

	return sel
}

// Summary is a one-line description of the selection for the text report
func (l LambdaMax) Summary() string {
	if l.Selected == nil {
		return "λmax: no wavelengths entered"
	}
	return fmt.Sprintf("λmax: %s (A = %s)", FormatFloat(*l.Selected), FormatFloat(*l.SelectedAbsorbance))
}

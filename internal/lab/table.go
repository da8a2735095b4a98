package lab

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names used by the two tables of the experiment
const (
	ColumnWavelength    = "Wavelength"
	ColumnConcentration = "Concentration"
	ColumnAbsorbance    = "Absorbance"
)

// Point is a single measurement pair: an independent value and its absorbance
type Point struct {
	X          float64 `json:"x"`
	Absorbance float64 `json:"absorbance"`
}

// LineError describes an input line that could not be turned into a row
type LineError struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Table is an ordered sequence of measurement pairs with named columns
type Table struct {
	XColumn  string
	Points   []Point
	Warnings []LineError
}

// ParseTable builds a table from freeform text with one "<float>, <float>" pair per line.
// Blank lines are skipped; every other line that does not yield exactly two finite
// numbers is recorded as a warning and contributes no row.
func ParseTable(xColumn, input string) *Table {
	table := &Table{XColumn: xColumn, Points: []Point{}}

	for i, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			table.Warnings = append(table.Warnings, LineError{
				Line:   i + 1,
				Text:   line,
				Reason: fmt.Sprintf("expected 2 comma-separated values, got %d", len(parts)),
			})
			continue
		}

		x, err := parseValue(parts[0])
		if err != nil {
			table.Warnings = append(table.Warnings, LineError{Line: i + 1, Text: line, Reason: fmt.Sprintf("%s: %v", strings.ToLower(xColumn), err)})
			continue
		}
		a, err := parseValue(parts[1])
		if err != nil {
			table.Warnings = append(table.Warnings, LineError{Line: i + 1, Text: line, Reason: fmt.Sprintf("absorbance: %v", err)})
			continue
		}

		table.Points = append(table.Points, Point{X: x, Absorbance: a})
	}

	return table
}

func parseValue(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", token)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", token)
	}
	return v, nil
}

// Len returns the number of parsed rows
func (t *Table) Len() int {
	return len(t.Points)
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return len(t.Points) == 0
}

// Xs returns the independent column in table order
func (t *Table) Xs() []float64 {
	xs := make([]float64, len(t.Points))
	for i, p := range t.Points {
		xs[i] = p.X
	}
	return xs
}

// Absorbances returns the absorbance column in table order
func (t *Table) Absorbances() []float64 {
	ys := make([]float64, len(t.Points))
	for i, p := range t.Points {
		ys[i] = p.Absorbance
	}
	return ys
}

package charts

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/beerlab/internal/lab"
)

func TestRender(t *testing.T) {
	wavelengths := lab.ParseTable(lab.ColumnWavelength, "400, 0.2\n420, 0.5\n470, 0.8\n500, 1.0")
	concentrations := lab.ParseTable(lab.ColumnConcentration, "0.002, 0.4\n0.004, 0.6\n0.006, 0.8")
	fit, err := lab.FitLine(concentrations)
	require.NoError(t, err)

	tests := []struct {
		name  string
		kind  string
		table *lab.Table
		opts  Options
	}{
		{name: "wavelength default size", kind: KindWavelength, table: wavelengths},
		{name: "concentration with fit", kind: KindConcentration, table: concentrations, opts: Options{Width: 640, Height: 320, Fit: fit}},
		{name: "flat absorbance", kind: KindWavelength, table: lab.ParseTable(lab.ColumnWavelength, "400, 0.5\n500, 0.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Render(tt.kind, tt.table, tt.opts)
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)

			wantW, wantH := DefaultWidth, DefaultHeight
			if tt.opts.Width > 0 {
				wantW, wantH = tt.opts.Width, tt.opts.Height
			}
			assert.Equal(t, wantW, img.Bounds().Dx())
			assert.Equal(t, wantH, img.Bounds().Dy())
		})
	}
}

func TestRender_InsufficientData(t *testing.T) {
	tables := map[string]*lab.Table{
		"nil":         nil,
		"empty":       lab.ParseTable(lab.ColumnConcentration, ""),
		"single row":  lab.ParseTable(lab.ColumnConcentration, "0.002, 0.4"),
		"identical x": lab.ParseTable(lab.ColumnConcentration, "0.002, 0.4\n0.002, 0.5"),
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Plottable(table))
			_, err := Render(KindConcentration, table, Options{})
			assert.ErrorIs(t, err, ErrInsufficientData)
		})
	}
}

func TestInsufficientDataNotice(t *testing.T) {
	assert.Contains(t, InsufficientDataNotice(KindWavelength), "λmax determination")
	assert.Contains(t, InsufficientDataNotice(KindConcentration), "A and %T determination")
}

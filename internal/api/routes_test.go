package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/beerlab/internal/api/handlers"
	"github.com/RMahshie/beerlab/internal/processing"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/pkg/models"
)

const (
	sampleWavelengths    = "400, 0.2\n420, 0.5\n470, 0.8\n500, 1.0\n530, 0.9\n620, 0.6\n660, 0.4\n700, 0.2"
	sampleConcentrations = "0.002, 0.4\n0.004, 0.6\n0.006, 0.8\n0.008, 1.0\n0.010, 1.2"
)

var imageNames = []string{"exp4_1.png", "exp4_2.png", "exp4_3.png"}

// setupAPI wires the real pipeline to a filesystem image store in a temp dir
func setupAPI(t *testing.T, withImages bool) humatest.TestAPI {
	t.Helper()

	dir := t.TempDir()
	if withImages {
		for _, name := range imageNames {
			var buf bytes.Buffer
			require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
		}
	}
	store, err := storage.NewFSStore(dir)
	require.NoError(t, err)

	svc := processing.NewProcessingService(store, processing.Options{
		Title:                     "EXPERIMENT - 4",
		ImageNames:                imageNames,
		DefaultWavelengthInput:    sampleWavelengths,
		DefaultConcentrationInput: sampleConcentrations,
	})

	_, api := humatest.New(t)
	RegisterRoutes(api, svc, handlers.Defaults{
		WavelengthInput:    sampleWavelengths,
		ConcentrationInput: sampleConcentrations,
	})
	return api
}

func TestCreateReport_DefaultSample(t *testing.T) {
	api := setupAPI(t, true)

	resp := api.Post("/api/reports", map[string]any{"unknown_absorbance": 0.7})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var report models.Report
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))

	assert.Len(t, report.Images, 3)
	assert.Equal(t, "/api/images/exp4_1.png", report.Images[0].URL)
	require.NotNil(t, report.Fit)
	assert.InDelta(t, 100, report.Fit.Slope, 1e-9)
	assert.InDelta(t, 0.2, report.Fit.Intercept, 1e-9)
	assert.Len(t, report.KnownRows, 5)
	require.NotNil(t, report.Unknown)
	require.NotNil(t, report.Unknown.Concentration)
	assert.InDelta(t, 0.005, *report.Unknown.Concentration, 1e-9)
	assert.InDelta(t, 99.3, report.Unknown.Transmittance, 1e-9)
}

func TestCreateReport_EmptyConcentrationInput(t *testing.T) {
	api := setupAPI(t, true)

	resp := api.Post("/api/reports", map[string]any{"concentration_input": ""})
	require.Equal(t, http.StatusOK, resp.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	assert.Nil(t, report.Fit)
	assert.NotEmpty(t, report.FitError)
	assert.Nil(t, report.Unknown)
	assert.False(t, report.Charts[1].Available)
}

func TestCreateReport_MissingImages(t *testing.T) {
	api := setupAPI(t, false)

	resp := api.Post("/api/reports", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "exp4_1.png")
}

func TestRenderChart_Endpoint(t *testing.T) {
	api := setupAPI(t, false)

	resp := api.Get("/api/charts/concentration?fit=true&input=" + url.QueryEscape(sampleConcentrations))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(resp.Body.Bytes()))
	assert.NoError(t, err)

	resp = api.Get("/api/charts/wavelength?input=" + url.QueryEscape("400, 0.2"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "Please provide data for λmax determination.")

	resp = api.Get("/api/charts/spectrum")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestImages_Endpoints(t *testing.T) {
	api := setupAPI(t, true)

	resp := api.Get("/api/images")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"width":8`)

	resp = api.Get("/api/images/exp4_2.png")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", resp.Header().Get("Cache-Control"))

	resp = api.Get("/api/images/not-listed.png")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

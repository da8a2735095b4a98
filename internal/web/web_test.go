package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/beerlab/internal/processing"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/pkg/models"
)

// MockProcessingService implements processing.ProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) BuildReport(ctx context.Context, in processing.Input) (*models.Report, error) {
	args := m.Called(ctx, in)
	report, _ := args.Get(0).(*models.Report)
	return report, args.Error(1)
}

func (m *MockProcessingService) RenderChart(ctx context.Context, in processing.ChartInput) ([]byte, error) {
	args := m.Called(ctx, in)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockProcessingService) ReferenceImages(ctx context.Context) ([]models.ReferenceImage, error) {
	args := m.Called(ctx)
	images, _ := args.Get(0).([]models.ReferenceImage)
	return images, args.Error(1)
}

func (m *MockProcessingService) ReferenceImage(ctx context.Context, name string) (*storage.Image, []byte, error) {
	args := m.Called(ctx, name)
	img, _ := args.Get(0).(*storage.Image)
	data, _ := args.Get(1).([]byte)
	return img, data, args.Error(2)
}

var opts = Options{
	Title:                     "EXPERIMENT - 4",
	DefaultWavelengthInput:    "400, 0.2\n500, 1.0",
	DefaultConcentrationInput: "0.002, 0.4\n0.004, 0.6",
}

func fp(v float64) *float64 { return &v }

func sampleReport() *models.Report {
	c := 0.003
	return &models.Report{
		ID:    "r-1",
		Title: "EXPERIMENT - 4",
		Images: []models.ReferenceImage{
			{Name: "exp4_1.png", URL: "/api/images/exp4_1.png", Width: 4, Height: 3},
		},
		Wavelength: models.TableSection{
			Column: "Wavelength",
			Rows:   []models.DataPoint{{X: 400, Absorbance: 0.2}, {X: 500, Absorbance: 1.0}},
		},
		LambdaMax: models.LambdaMaxSection{
			Options:        []float64{400, 500},
			Selected:       fp(400),
			Peak:           fp(500),
			PeakAbsorbance: fp(1.0),
		},
		Concentration: models.TableSection{
			Column:   "Concentration",
			Rows:     []models.DataPoint{{X: 0.002, Absorbance: 0.4}, {X: 0.004, Absorbance: 0.6}},
			Warnings: []models.LineWarning{{Line: 3, Text: "oops", Reason: "expected two comma-separated values"}},
		},
		Fit:       &models.FitResult{Slope: 100, Intercept: 0.2, Points: 2},
		KnownRows: []models.KnownRow{{Index: 1, Line: "1 | 0.002 | 0.4 | 99.6"}, {Index: 2, Line: "2 | 0.004 | 0.6 | 99.4"}},
		Unknown:   &models.UnknownResult{Absorbance: 0.5, Concentration: &c, Transmittance: 99.5, Line: "Unknown | 0.003 | 0.5 | 99.5"},
		Charts: []models.ChartStatus{
			{Kind: "wavelength", Title: "Absorbance vs. Wavelength Graph:", Available: true, DataURI: "data:image/png;base64,iVBORw0KGgo="},
			{Kind: "concentration", Title: "Absorbance vs. Concentration Graph:", Notice: "Insufficient data for plotting. Please provide data for A and %T determination."},
		},
	}
}

func newRouter(svc processing.ProcessingService) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, opts).Register(r)
	return r
}

func TestPage_FirstLoadUsesDefaults(t *testing.T) {
	svc := &MockProcessingService{}
	svc.On("BuildReport", mock.Anything, processing.Input{
		WavelengthInput:    opts.DefaultWavelengthInput,
		ConcentrationInput: opts.DefaultConcentrationInput,
		IncludeCharts:      true,
	}).Return(sampleReport(), nil)

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<h1>EXPERIMENT - 4</h1>")
	assert.Contains(t, body, `src="/api/images/exp4_1.png"`)
	assert.Contains(t, body, "Part B: Determination of λmax")
	assert.Contains(t, body, `<option value="400.0" selected>`)
	assert.Contains(t, body, "Highest measured absorbance is at 500.0")
	assert.Contains(t, body, "A (slope): 100.0")
	assert.Contains(t, body, "b (intercept): 0.2")
	assert.Contains(t, body, "Sr No | Conc. of solution(C) | Absorbance (A) | Transmission (%T)")
	assert.Contains(t, body, "1 | 0.002 | 0.4 | 99.6")
	assert.Contains(t, body, "Unknown | 0.003 | 0.5 | 99.5")
	assert.Contains(t, body, "Line 3 skipped (oops)")
	assert.Contains(t, body, `src="data:image/png;base64,iVBORw0KGgo="`)
	assert.Contains(t, body, "Please provide data for A and %T determination.")

	svc.AssertExpectations(t)
}

func TestPage_PostedForm(t *testing.T) {
	svc := &MockProcessingService{}
	svc.On("BuildReport", mock.Anything, processing.Input{
		WavelengthInput:    "600, 0.3",
		ConcentrationInput: "",
		LambdaMax:          fp(600),
		UnknownAbsorbance:  0.25,
		IncludeCharts:      true,
	}).Return(&models.Report{Title: "EXPERIMENT - 4"}, nil)

	form := url.Values{}
	form.Set("wavelength_input", "600, 0.3")
	form.Set("concentration_input", "")
	form.Set("lambda_max", "600.0")
	form.Set("unknown_absorbance", "0.25")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, ">600, 0.3</textarea>")
	assert.NotContains(t, body, "Results for Unknown Concentration:")
	assert.Contains(t, body, `name="unknown_absorbance" value="0.25"`)

	svc.AssertExpectations(t)
}

func TestPage_InvalidNumbersFallBack(t *testing.T) {
	svc := &MockProcessingService{}
	svc.On("BuildReport", mock.Anything, processing.Input{
		WavelengthInput:    opts.DefaultWavelengthInput,
		ConcentrationInput: opts.DefaultConcentrationInput,
		IncludeCharts:      true,
	}).Return(sampleReport(), nil)

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?unknown_absorbance=abc&lambda_max=max", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Unknown absorbance &#34;abc&#34; is not a number, using 0.0")
	assert.Contains(t, body, "Ignoring λmax &#34;max&#34;: not a number")
	assert.Contains(t, body, `name="unknown_absorbance" value="0.0"`)
}

func TestPage_ImageFailureShowsOnlyBanner(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing", fmt.Errorf("failed to load reference image exp4_2.png: %w", storage.ErrImageNotFound), http.StatusNotFound},
		{"unreadable", fmt.Errorf("failed to load reference image exp4_2.png: %w", storage.ErrInvalidImage), http.StatusInternalServerError},
		{"store down", fmt.Errorf("failed to load reference image exp4_2.png: %w", storage.ErrStoreUnavailable), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProcessingService{}
			svc.On("BuildReport", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, `class="banner error"`)
			assert.Contains(t, body, "exp4_2.png")
			assert.NotContains(t, body, "<form")
		})
	}
}

func TestPage_OnlyTrustsPNGDataURIs(t *testing.T) {
	svc := &MockProcessingService{}
	report := sampleReport()
	report.Charts[0].DataURI = "javascript:alert(1)"
	svc.On("BuildReport", mock.Anything, mock.Anything).Return(report, nil)

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotContains(t, rec.Body.String(), "javascript:alert")
}

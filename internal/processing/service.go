package processing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/beerlab/internal/charts"
	"github.com/RMahshie/beerlab/internal/lab"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/pkg/models"
)

// ErrUnknownImage is returned for image names that are not part of the experiment
var ErrUnknownImage = errors.New("not a reference image")

// Input is the raw content of the lab form for one render
type Input struct {
	WavelengthInput    string
	ConcentrationInput string
	LambdaMax          *float64
	UnknownAbsorbance  float64
	IncludeCharts      bool
}

// ChartInput describes a single chart request
type ChartInput struct {
	Kind   string
	Input  string
	Fit    bool
	Width  int
	Height int
}

// ProcessingService runs the lab pipeline: parse both tables, fit Beer's Law and derive the report
type ProcessingService interface {
	BuildReport(ctx context.Context, in Input) (*models.Report, error)
	RenderChart(ctx context.Context, in ChartInput) ([]byte, error)
	ReferenceImages(ctx context.Context) ([]models.ReferenceImage, error)
	ReferenceImage(ctx context.Context, name string) (*storage.Image, []byte, error)
}

// Options configures the processing service
type Options struct {
	Title      string
	ImageNames []string
	// Defaults used when a chart request carries no input
	DefaultWavelengthInput    string
	DefaultConcentrationInput string
}

type processingService struct {
	images storage.ImageStore
	opts   Options
}

// NewProcessingService creates the lab processing service
func NewProcessingService(images storage.ImageStore, opts Options) ProcessingService {
	return &processingService{
		images: images,
		opts:   opts,
	}
}

func (s *processingService) BuildReport(ctx context.Context, in Input) (*models.Report, error) {
	reportID := uuid.New().String()
	log.Info().Str("reportID", reportID).Msg("Building lab report")

	report := &models.Report{
		ID:        reportID,
		Title:     s.opts.Title,
		Lines:     []string{},
		CreatedAt: time.Now(),
	}

	// Step 1: Image panel; a missing image aborts the render
	images, err := s.ReferenceImages(ctx)
	if err != nil {
		log.Error().Err(err).Str("reportID", reportID).Msg("Reference image unavailable")
		return nil, err
	}
	report.Images = images

	// Step 2: λmax table and selector
	wavelengths := lab.ParseTable(lab.ColumnWavelength, in.WavelengthInput)
	report.Wavelength = tableSection(wavelengths)
	sel := lab.SelectLambdaMax(wavelengths, in.LambdaMax)
	report.LambdaMax = models.LambdaMaxSection{
		Options:            sel.Options,
		Selected:           sel.Selected,
		SelectedAbsorbance: sel.SelectedAbsorbance,
		Peak:               sel.Peak,
		PeakAbsorbance:     sel.PeakAbsorbance,
		MatchesPeak:        sel.MatchesPeak(),
	}
	report.Lines = append(report.Lines, sel.Summary())

	// Step 3: Concentration table and Beer's Law fit
	concentrations := lab.ParseTable(lab.ColumnConcentration, in.ConcentrationInput)
	report.Concentration = tableSection(concentrations)

	fit, err := lab.FitLine(concentrations)
	if err != nil {
		report.FitError = fmt.Sprintf("Beer's Law fit failed: %v", err)
		report.Lines = append(report.Lines, report.FitError)
		log.Warn().Err(err).Str("reportID", reportID).Int("rows", concentrations.Len()).Msg("Fit not computed")
	} else {
		report.Fit = fitResult(fit)
		report.Lines = append(report.Lines, lab.ParameterLines(fit)...)

		// Step 4: Known rows and the unknown sample
		report.Lines = append(report.Lines, lab.KnownHeader)
		for _, row := range lab.KnownRows(concentrations) {
			line := row.Line()
			report.KnownRows = append(report.KnownRows, models.KnownRow{
				Index:         row.Index,
				Concentration: row.Concentration,
				Absorbance:    row.Absorbance,
				Transmittance: row.Transmittance,
				Line:          line,
			})
			report.Lines = append(report.Lines, line)
		}

		unknown := lab.Unknown(fit, in.UnknownAbsorbance)
		report.Unknown = &models.UnknownResult{
			Absorbance:    unknown.Absorbance,
			Transmittance: unknown.Transmittance,
			Line:          unknown.Line(),
		}
		if unknown.Defined {
			c := unknown.Concentration
			report.Unknown.Concentration = &c
		}
		report.Lines = append(report.Lines, report.Unknown.Line)
	}

	// Step 5: Charts
	report.Charts = []models.ChartStatus{
		s.chartStatus(charts.KindWavelength, in.WavelengthInput, wavelengths, nil, in.IncludeCharts),
		s.chartStatus(charts.KindConcentration, in.ConcentrationInput, concentrations, fit, in.IncludeCharts),
	}

	log.Info().
		Str("reportID", reportID).
		Int("wavelengthRows", wavelengths.Len()).
		Int("concentrationRows", concentrations.Len()).
		Int("warnings", len(wavelengths.Warnings)+len(concentrations.Warnings)).
		Bool("fitted", fit != nil).
		Msg("Lab report built")

	return report, nil
}

func (s *processingService) RenderChart(ctx context.Context, in ChartInput) ([]byte, error) {
	var table *lab.Table
	var fit *lab.Fit

	switch in.Kind {
	case charts.KindWavelength:
		table = lab.ParseTable(lab.ColumnWavelength, orDefault(in.Input, s.opts.DefaultWavelengthInput))
	case charts.KindConcentration:
		table = lab.ParseTable(lab.ColumnConcentration, orDefault(in.Input, s.opts.DefaultConcentrationInput))
		if in.Fit {
			fit, _ = lab.FitLine(table)
		}
	default:
		return nil, fmt.Errorf("unknown chart kind %q", in.Kind)
	}

	return charts.Render(in.Kind, table, charts.Options{Width: in.Width, Height: in.Height, Fit: fit})
}

func (s *processingService) ReferenceImages(ctx context.Context) ([]models.ReferenceImage, error) {
	images := make([]models.ReferenceImage, 0, len(s.opts.ImageNames))
	for _, name := range s.opts.ImageNames {
		img, _, err := storage.Load(ctx, s.images, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load reference image %s: %w", name, err)
		}
		images = append(images, models.ReferenceImage{
			Name:   img.Name,
			URL:    img.URL,
			Format: img.Format,
			Width:  img.Width,
			Height: img.Height,
		})
	}
	return images, nil
}

func (s *processingService) ReferenceImage(ctx context.Context, name string) (*storage.Image, []byte, error) {
	if !slices.Contains(s.opts.ImageNames, name) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownImage, name)
	}
	return storage.Load(ctx, s.images, name)
}

// chartStatus reports chart availability and renders it inline when asked to
func (s *processingService) chartStatus(kind, input string, table *lab.Table, fit *lab.Fit, inline bool) models.ChartStatus {
	status := models.ChartStatus{Kind: kind}
	if kind == charts.KindWavelength {
		status.Title = "Absorbance vs. Wavelength Graph:"
	} else {
		status.Title = "Absorbance vs. Concentration Graph:"
	}

	if !charts.Plottable(table) {
		status.Notice = charts.InsufficientDataNotice(kind)
		return status
	}

	status.Available = true
	q := url.Values{}
	q.Set("input", input)
	if fit != nil {
		q.Set("fit", "true")
	}
	status.URL = "/api/charts/" + kind + "?" + q.Encode()

	if inline {
		png, err := charts.Render(kind, table, charts.Options{Fit: fit})
		if err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("Chart render failed")
			status.Available = false
			status.Notice = fmt.Sprintf("Chart could not be drawn: %v", err)
			return status
		}
		status.DataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}
	return status
}

func tableSection(t *lab.Table) models.TableSection {
	section := models.TableSection{
		Column: t.XColumn,
		Rows:   make([]models.DataPoint, 0, t.Len()),
	}
	for _, p := range t.Points {
		section.Rows = append(section.Rows, models.DataPoint{X: p.X, Absorbance: p.Absorbance})
	}
	for _, w := range t.Warnings {
		section.Warnings = append(section.Warnings, models.LineWarning{Line: w.Line, Text: w.Text, Reason: w.Reason})
	}
	return section
}

func fitResult(fit *lab.Fit) *models.FitResult {
	result := &models.FitResult{
		Slope:     fit.Slope,
		Intercept: fit.Intercept,
		Points:    fit.N,
	}
	if finite(fit.RSquared) {
		r2 := fit.RSquared
		result.RSquared = &r2
	}
	if cov := fit.Covariance; cov != nil && finite(cov[0][0], cov[0][1], cov[1][0], cov[1][1]) {
		result.Covariance = cov
	}
	return result
}

// finite guards values that JSON cannot encode
func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

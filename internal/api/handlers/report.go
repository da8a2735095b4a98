package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/beerlab/internal/charts"
	"github.com/RMahshie/beerlab/internal/processing"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/pkg/models"
)

// Defaults holds the sample inputs used when a request omits a table
type Defaults struct {
	WavelengthInput    string
	ConcentrationInput string
}

// ReportHandler handles lab report, chart and image requests
type ReportHandler struct {
	processingSvc processing.ProcessingService
	defaults      Defaults
}

// NewReportHandler creates a new report handler
func NewReportHandler(processingSvc processing.ProcessingService, defaults Defaults) *ReportHandler {
	return &ReportHandler{
		processingSvc: processingSvc,
		defaults:      defaults,
	}
}

// CreateReport parses the submitted tables, fits Beer's Law and returns the full report
func (h *ReportHandler) CreateReport(ctx context.Context, req *models.CreateReportRequest) (*models.CreateReportResponse, error) {
	in := processing.Input{
		WavelengthInput:    h.defaults.WavelengthInput,
		ConcentrationInput: h.defaults.ConcentrationInput,
		LambdaMax:          req.Body.LambdaMax,
		UnknownAbsorbance:  req.Body.UnknownAbsorbance,
		IncludeCharts:      req.Body.IncludeCharts,
	}
	if req.Body.WavelengthInput != nil {
		in.WavelengthInput = *req.Body.WavelengthInput
	}
	if req.Body.ConcentrationInput != nil {
		in.ConcentrationInput = *req.Body.ConcentrationInput
	}

	report, err := h.processingSvc.BuildReport(ctx, in)
	if err != nil {
		return nil, imageError(err)
	}

	return &models.CreateReportResponse{Body: report}, nil
}

// RenderChart draws one of the two line charts as a PNG
func (h *ReportHandler) RenderChart(ctx context.Context, req *models.RenderChartRequest) (*models.RenderChartResponse, error) {
	png, err := h.processingSvc.RenderChart(ctx, processing.ChartInput{
		Kind:   req.Kind,
		Input:  req.Input,
		Fit:    req.Fit,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		if errors.Is(err, charts.ErrInsufficientData) {
			return nil, huma.Error422UnprocessableEntity(charts.InsufficientDataNotice(req.Kind), err)
		}
		log.Error().Err(err).Str("kind", req.Kind).Msg("Chart render failed")
		return nil, huma.Error500InternalServerError("Failed to render chart", err)
	}

	return &models.RenderChartResponse{
		ContentType: "image/png",
		Body:        png,
	}, nil
}

// ListImages returns the reference images shown at the top of the lab page
func (h *ReportHandler) ListImages(ctx context.Context, req *struct{}) (*models.ListImagesResponse, error) {
	images, err := h.processingSvc.ReferenceImages(ctx)
	if err != nil {
		return nil, imageError(err)
	}

	resp := &models.ListImagesResponse{}
	resp.Body.Images = images
	return resp, nil
}

// GetImage streams one reference image
func (h *ReportHandler) GetImage(ctx context.Context, req *models.GetImageRequest) (*models.GetImageResponse, error) {
	img, data, err := h.processingSvc.ReferenceImage(ctx, req.Name)
	if err != nil {
		return nil, imageError(err)
	}

	return &models.GetImageResponse{
		ContentType:  img.ContentType,
		CacheControl: "public, max-age=3600",
		Body:         data,
	}, nil
}

// imageError maps image store failures to user-facing status errors
func imageError(err error) error {
	switch {
	case errors.Is(err, processing.ErrUnknownImage), errors.Is(err, storage.ErrImageNotFound):
		return huma.Error404NotFound("Reference image not found: "+err.Error(), err)
	case errors.Is(err, storage.ErrInvalidImage):
		return huma.Error500InternalServerError("Reference image is unreadable: "+err.Error(), err)
	case errors.Is(err, storage.ErrStoreUnavailable):
		return huma.Error502BadGateway("Reference images are unavailable. Please try again.", err)
	default:
		return huma.Error500InternalServerError("Failed to build report", err)
	}
}

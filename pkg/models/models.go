package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// ReportRequestBody carries the raw form inputs for one render
type ReportRequestBody struct {
	WavelengthInput    *string  `json:"wavelength_input,omitempty" doc:"Wavelength/absorbance pairs, one '<float>, <float>' per line. Omit to use the default sample"`
	ConcentrationInput *string  `json:"concentration_input,omitempty" doc:"Concentration/absorbance pairs, one '<float>, <float>' per line. Omit to use the default sample"`
	LambdaMax          *float64 `json:"lambda_max,omitempty" doc:"Selected wavelength of maximum absorbance; defaults to the first wavelength"`
	UnknownAbsorbance  float64  `json:"unknown_absorbance,omitempty" doc:"Measured absorbance of the unknown sample"`
	IncludeCharts      bool     `json:"include_charts,omitempty" doc:"Embed chart PNGs as data URIs"`
}

// CreateReportRequest represents a request to build a lab report
type CreateReportRequest struct {
	Body ReportRequestBody
}

// CreateReportResponse represents the built lab report
type CreateReportResponse struct {
	Body *Report
}

// RenderChartRequest represents a request to draw one chart from raw input text
type RenderChartRequest struct {
	Kind   string `path:"kind" enum:"wavelength,concentration" doc:"Which table to plot"`
	Input  string `query:"input" doc:"Raw '<float>, <float>' lines; the default sample is used when empty"`
	Fit    bool   `query:"fit" doc:"Overlay the Beer's Law fit (concentration chart only)"`
	Width  int    `query:"width" minimum:"0" maximum:"2000" doc:"Image width in pixels"`
	Height int    `query:"height" minimum:"0" maximum:"2000" doc:"Image height in pixels"`
}

// RenderChartResponse is a rendered PNG chart
type RenderChartResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// ListImagesResponse lists the experiment's reference images
type ListImagesResponse struct {
	Body struct {
		Images []ReferenceImage `json:"images" doc:"Reference images in display order"`
	}
}

// GetImageRequest represents a request for one reference image
type GetImageRequest struct {
	Name string `path:"name" doc:"Reference image file name"`
}

// GetImageResponse streams a reference image
type GetImageResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// ReferenceImage describes one image of the image panel
type ReferenceImage struct {
	Name   string `json:"name" doc:"Image file name"`
	URL    string `json:"url" doc:"URL the browser loads the image from"`
	Format string `json:"format" doc:"Decoded image format"`
	Width  int    `json:"width" doc:"Width in pixels"`
	Height int    `json:"height" doc:"Height in pixels"`
}

// DataPoint is one parsed measurement pair
type DataPoint struct {
	X          float64 `json:"x" doc:"Wavelength or concentration"`
	Absorbance float64 `json:"absorbance" doc:"Measured absorbance"`
}

// LineWarning describes an input line that was skipped
type LineWarning struct {
	Line   int    `json:"line" doc:"1-based input line number"`
	Text   string `json:"text" doc:"The offending line"`
	Reason string `json:"reason" doc:"Why the line was skipped"`
}

// TableSection is a parsed input table
type TableSection struct {
	Column   string        `json:"column" doc:"Name of the independent column"`
	Rows     []DataPoint   `json:"rows" doc:"Parsed rows in input order"`
	Warnings []LineWarning `json:"warnings,omitempty" doc:"Malformed input lines"`
}

// LambdaMaxSection is the state of the λmax selector
type LambdaMaxSection struct {
	Options            []float64 `json:"options" doc:"Selectable wavelengths in table order"`
	Selected           *float64  `json:"selected,omitempty" doc:"Selected λmax"`
	SelectedAbsorbance *float64  `json:"selected_absorbance,omitempty" doc:"Absorbance at the selected λmax"`
	Peak               *float64  `json:"peak,omitempty" doc:"Wavelength with the highest measured absorbance"`
	PeakAbsorbance     *float64  `json:"peak_absorbance,omitempty" doc:"Highest measured absorbance"`
	MatchesPeak        bool      `json:"matches_peak" doc:"Whether the selection equals the measured peak"`
}

// FitResult holds the Beer's Law parameters
type FitResult struct {
	Slope      float64        `json:"slope" doc:"A (slope)"`
	Intercept  float64        `json:"intercept" doc:"b (intercept)"`
	Covariance *[2][2]float64 `json:"covariance,omitempty" doc:"Covariance of (slope, intercept); omitted with fewer than 3 points"`
	RSquared   *float64       `json:"r_squared,omitempty" doc:"Coefficient of determination"`
	Points     int            `json:"points" doc:"Number of rows fitted"`
}

// KnownRow is one row of the known-concentration results
type KnownRow struct {
	Index         int     `json:"index" doc:"1-based row number"`
	Concentration float64 `json:"concentration" doc:"Concentration of solution (C)"`
	Absorbance    float64 `json:"absorbance" doc:"Absorbance (A)"`
	Transmittance float64 `json:"transmittance" doc:"Transmission (%T = 100 - A)"`
	Line          string  `json:"line" doc:"Formatted report line"`
}

// UnknownResult is the back-computed unknown sample
type UnknownResult struct {
	Absorbance    float64  `json:"absorbance" doc:"Entered absorbance"`
	Concentration *float64 `json:"concentration" doc:"Computed concentration; null when the slope is zero"`
	Transmittance float64  `json:"transmittance" doc:"Transmission (%T = 100 - A)"`
	Line          string   `json:"line" doc:"Formatted report line"`
}

// ChartStatus says whether a chart can be drawn and where to get it
type ChartStatus struct {
	Kind      string `json:"kind" doc:"wavelength or concentration"`
	Title     string `json:"title" doc:"Chart heading"`
	Available bool   `json:"available" doc:"Whether the table has enough data to plot"`
	Notice    string `json:"notice,omitempty" doc:"Shown instead of the chart when unavailable"`
	URL       string `json:"url,omitempty" doc:"API URL rendering the chart as PNG"`
	DataURI   string `json:"data_uri,omitempty" doc:"Inline PNG when include_charts is set"`
}

// Report is the full result of one render of the lab page
type Report struct {
	ID            string           `json:"id" doc:"Report identifier for log correlation"`
	Title         string           `json:"title" doc:"Experiment title"`
	Images        []ReferenceImage `json:"images" doc:"Reference images"`
	Wavelength    TableSection     `json:"wavelength" doc:"Data for λmax determination"`
	LambdaMax     LambdaMaxSection `json:"lambda_max" doc:"λmax selection"`
	Concentration TableSection     `json:"concentration" doc:"Data for A and %T determination"`
	Fit           *FitResult       `json:"fit,omitempty" doc:"Beer's Law parameters"`
	FitError      string           `json:"fit_error,omitempty" doc:"Why the fit could not be computed"`
	KnownRows     []KnownRow       `json:"known_rows,omitempty" doc:"Results for known concentrations"`
	Unknown       *UnknownResult   `json:"unknown,omitempty" doc:"Result for the unknown concentration"`
	Lines         []string         `json:"lines" doc:"Plain-text report"`
	Charts        []ChartStatus    `json:"charts" doc:"Absorbance vs. wavelength and vs. concentration"`
	CreatedAt     time.Time        `json:"created_at" doc:"When the report was built"`
}

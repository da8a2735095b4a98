package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/beerlab/internal/api/handlers"
	"github.com/RMahshie/beerlab/internal/processing"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, processingSvc processing.ProcessingService, defaults handlers.Defaults) {
	// Initialize handlers
	reportHandler := handlers.NewReportHandler(processingSvc, defaults)

	// Register report routes
	huma.Register(api, huma.Operation{
		OperationID: "createReport",
		Method:      http.MethodPost,
		Path:        "/api/reports",
		Summary:     "Build a lab report",
		Description: "Parses the wavelength and concentration tables, fits Beer's Law and returns transmittance, the unknown concentration and chart links",
		Tags:        []string{"Report"},
	}, reportHandler.CreateReport)

	huma.Register(api, huma.Operation{
		OperationID: "renderChart",
		Method:      http.MethodGet,
		Path:        "/api/charts/{kind}",
		Summary:     "Render a chart",
		Description: "Renders absorbance against wavelength or concentration as a PNG line chart",
		Tags:        []string{"Report"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "PNG image",
				Content:     map[string]*huma.MediaType{"image/png": {}},
			},
		},
	}, reportHandler.RenderChart)

	// Register image routes
	huma.Register(api, huma.Operation{
		OperationID: "listImages",
		Method:      http.MethodGet,
		Path:        "/api/images",
		Summary:     "List reference images",
		Description: "Returns the experiment's reference images with their URLs and sizes",
		Tags:        []string{"Images"},
	}, reportHandler.ListImages)

	huma.Register(api, huma.Operation{
		OperationID: "getImage",
		Method:      http.MethodGet,
		Path:        "/api/images/{name}",
		Summary:     "Get a reference image",
		Description: "Streams one reference image from the configured image store",
		Tags:        []string{"Images"},
	}, reportHandler.GetImage)
}

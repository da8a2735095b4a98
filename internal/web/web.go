// Package web serves the lab form as a server-rendered HTML page.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/beerlab/internal/lab"
	"github.com/RMahshie/beerlab/internal/processing"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/pkg/models"
)

//go:embed templates
var templateFS embed.FS

const dataURIPrefix = "data:image/png;base64,"

var pageTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"num": lab.FormatFloat,
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
	"selected": func(sel *float64, v float64) bool {
		return sel != nil && *sel == v
	},
	// Chart PNGs are produced in-process, so only our own prefix is trusted
	"dataURI": func(s string) template.URL {
		if !strings.HasPrefix(s, dataURIPrefix) {
			return ""
		}
		return template.URL(s)
	},
}).ParseFS(templateFS, "templates/index.html"))

// Options configures the lab page
type Options struct {
	Title                     string
	DefaultWavelengthInput    string
	DefaultConcentrationInput string
}

// FormValues echoes the submitted form back into the page
type FormValues struct {
	WavelengthInput    string
	ConcentrationInput string
	UnknownAbsorbance  string
}

type pageData struct {
	Title                     string
	DefaultWavelengthInput    string
	DefaultConcentrationInput string
	KnownHeader               string
	Form                      FormValues
	Notices                   []string
	Report                    *models.Report
	Error                     string
}

// Handler renders the lab form and its report
type Handler struct {
	processingSvc processing.ProcessingService
	opts          Options
}

// NewHandler creates the lab page handler
func NewHandler(processingSvc processing.ProcessingService, opts Options) *Handler {
	return &Handler{
		processingSvc: processingSvc,
		opts:          opts,
	}
}

// Register mounts the page on the router
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Page)
	r.Post("/", h.Page)
}

// Page builds the report from the submitted form, or from the defaults on first load
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	data := pageData{
		Title:                     h.opts.Title,
		DefaultWavelengthInput:    h.opts.DefaultWavelengthInput,
		DefaultConcentrationInput: h.opts.DefaultConcentrationInput,
		KnownHeader:               lab.KnownHeader,
	}
	in, form, notices := h.readForm(r)
	data.Form = form
	data.Notices = notices

	in.IncludeCharts = true
	report, err := h.processingSvc.BuildReport(r.Context(), in)
	if err != nil {
		log.Error().Err(err).Msg("Lab page render failed")
		data.Error = err.Error()
		h.render(w, statusFor(err), data)
		return
	}
	data.Report = report

	h.render(w, http.StatusOK, data)
}

// readForm maps form fields to pipeline input.
// An absent text field falls back to its default, an empty one stays empty.
func (h *Handler) readForm(r *http.Request) (processing.Input, FormValues, []string) {
	var notices []string
	in := processing.Input{
		WavelengthInput:    h.opts.DefaultWavelengthInput,
		ConcentrationInput: h.opts.DefaultConcentrationInput,
	}
	if _, ok := r.Form["wavelength_input"]; ok {
		in.WavelengthInput = r.Form.Get("wavelength_input")
	}
	if _, ok := r.Form["concentration_input"]; ok {
		in.ConcentrationInput = r.Form.Get("concentration_input")
	}

	if raw := strings.TrimSpace(r.Form.Get("lambda_max")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			in.LambdaMax = &v
		} else {
			notices = append(notices, fmt.Sprintf("Ignoring λmax %q: not a number", raw))
		}
	}

	form := FormValues{
		WavelengthInput:    in.WavelengthInput,
		ConcentrationInput: in.ConcentrationInput,
		UnknownAbsorbance:  lab.FormatFloat(0),
	}
	if raw := strings.TrimSpace(r.Form.Get("unknown_absorbance")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !isNonFinite(v) {
			in.UnknownAbsorbance = v
			form.UnknownAbsorbance = raw
		} else {
			notices = append(notices, fmt.Sprintf("Unknown absorbance %q is not a number, using 0.0", raw))
		}
	}

	return in, form, notices
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Template execution failed")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrImageNotFound), errors.Is(err, processing.ErrUnknownImage):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrStoreUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isNonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

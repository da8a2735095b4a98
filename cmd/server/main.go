package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/RMahshie/beerlab/internal/api"
	"github.com/RMahshie/beerlab/internal/api/handlers"
	"github.com/RMahshie/beerlab/internal/config"
	"github.com/RMahshie/beerlab/internal/processing"
	"github.com/RMahshie/beerlab/internal/storage"
	"github.com/RMahshie/beerlab/internal/web"
	"github.com/RMahshie/beerlab/pkg/models"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:          "beerlab",
		Short:        "Beer's Law guided lab: reference images, λmax selection, linear fit and report",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd(), reportCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var port, env string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lab web form and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if env != "" {
				os.Setenv("ENVIRONMENT", env)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if port != "" {
				cfg.Server.Port = port
			}
			setupLogging(cfg.Server.Env, cfg.Server.LogLevel)

			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&env, "env", "", "environment name, selects the .env.<env> file (overrides ENVIRONMENT)")
	return cmd
}

func serve(cfg *config.Config) error {
	images, err := storage.New(cfg.Storage())
	if err != nil {
		return fmt.Errorf("creating image store: %w", err)
	}

	processingSvc := processing.NewProcessingService(images, processing.Options{
		Title:                     cfg.Lab.Title,
		ImageNames:                cfg.Images.Names,
		DefaultWavelengthInput:    cfg.Lab.DefaultWavelengthInput,
		DefaultConcentrationInput: cfg.Lab.DefaultConcentrationInput,
	})

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))

	// CORS applies to the JSON API only
	router.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))

		// Create Huma API
		humaConfig := huma.DefaultConfig("Beerlab API", version)
		humaConfig.DocsPath = "/api/docs/ui"
		humaAPI := humachi.New(r, humaConfig)

		registerHealth(humaAPI)
		api.RegisterRoutes(humaAPI, processingSvc, handlers.Defaults{
			WavelengthInput:    cfg.Lab.DefaultWavelengthInput,
			ConcentrationInput: cfg.Lab.DefaultConcentrationInput,
		})

		// Serve OpenAPI spec at /api/docs
		r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			spec, err := humaAPI.OpenAPI().MarshalJSON()
			if err != nil {
				http.Error(w, "Failed to generate OpenAPI spec", http.StatusInternalServerError)
				return
			}
			w.Write(spec)
		})
	})

	// HTML lab form
	web.NewHandler(processingSvc, web.Options{
		Title:                     cfg.Lab.Title,
		DefaultWavelengthInput:    cfg.Lab.DefaultWavelengthInput,
		DefaultConcentrationInput: cfg.Lab.DefaultConcentrationInput,
	}).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.Server.Env).
			Str("image_source", cfg.Images.Source).
			Msg("Starting Beerlab server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("Server failed to start")
		return err
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}

func registerHealth(humaAPI huma.API) {
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = version
		resp.Body.Time = time.Now()
		return resp, nil
	})
}

func reportCmd() *cobra.Command {
	var wavelengthFile, concentrationFile string
	var lambdaMax, unknown float64

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the text report for input files without starting a server",
		Long: `Reads wavelength and concentration tables ('<float>, <float>' per line)
and prints the same report lines the web form shows. A table whose file is
not given uses the configured default sample. Use "-" to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			setupLogging(cfg.Server.Env, "warn")

			in := processing.Input{
				WavelengthInput:    cfg.Lab.DefaultWavelengthInput,
				ConcentrationInput: cfg.Lab.DefaultConcentrationInput,
				UnknownAbsorbance:  unknown,
			}
			if wavelengthFile != "" {
				if in.WavelengthInput, err = readInput(cmd, wavelengthFile); err != nil {
					return err
				}
			}
			if concentrationFile != "" {
				if in.ConcentrationInput, err = readInput(cmd, concentrationFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("lambda-max") {
				in.LambdaMax = &lambdaMax
			}

			// No image names: the report command has no image panel
			svc := processing.NewProcessingService(nil, processing.Options{Title: cfg.Lab.Title})
			report, err := svc.BuildReport(cmd.Context(), in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Title)
			for _, section := range []models.TableSection{report.Wavelength, report.Concentration} {
				for _, w := range section.Warnings {
					fmt.Fprintf(out, "warning: %s line %d skipped (%s): %s\n", strings.ToLower(section.Column), w.Line, w.Text, w.Reason)
				}
			}
			for _, line := range report.Lines {
				fmt.Fprintln(out, line)
			}
			for _, c := range report.Charts {
				if !c.Available {
					fmt.Fprintln(out, c.Notice)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&wavelengthFile, "wavelengths", "w", "", "file with wavelength/absorbance pairs")
	cmd.Flags().StringVarP(&concentrationFile, "concentrations", "c", "", "file with concentration/absorbance pairs")
	cmd.Flags().Float64Var(&lambdaMax, "lambda-max", 0, "selected λmax (defaults to the first wavelength)")
	cmd.Flags().Float64VarP(&unknown, "unknown", "u", 0, "absorbance of the unknown sample")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "beerlab %s\n", version)
		},
	}
}

// setupLogging configures the global zerolog logger: console output in dev, JSON elsewhere
func setupLogging(env, level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("user_agent", r.UserAgent()).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

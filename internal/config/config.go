package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/RMahshie/beerlab/internal/storage"
)

// Sample inputs pre-filled into the lab form
const (
	DefaultWavelengthInput    = "400, 0.2\n420, 0.5\n470, 0.8\n500, 1.0\n530, 0.9\n620, 0.6\n660, 0.4\n700, 0.2"
	DefaultConcentrationInput = "0.002, 0.4\n0.004, 0.6\n0.006, 0.8\n0.008, 1.0\n0.010, 1.2"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Lab    LabConfig
	Images ImageConfig
	AWS    AWSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// LabConfig holds the experiment's page title and default form inputs
type LabConfig struct {
	Title                     string
	DefaultWavelengthInput    string
	DefaultConcentrationInput string
}

// ImageConfig holds reference image configuration
type ImageConfig struct {
	Source    string
	Names     []string
	Dir       string
	URLExpiry time.Duration
}

// AWSConfig holds AWS/S3 configuration, shared by the s3 and minio image sources
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string
	MinioUseSSL     bool
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "dev")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8080,http://localhost:5173")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("LAB_TITLE", "EXPERIMENT - 4")
	viper.SetDefault("DEFAULT_WAVELENGTH_INPUT", DefaultWavelengthInput)
	viper.SetDefault("DEFAULT_CONCENTRATION_INPUT", DefaultConcentrationInput)
	viper.SetDefault("IMAGE_SOURCE", storage.SourceFS)
	viper.SetDefault("IMAGE_NAMES", "exp4_1.png,exp4_2.png,exp4_3.png")
	viper.SetDefault("IMAGE_DIR", "assets")
	viper.SetDefault("IMAGE_URL_EXPIRY", "1h")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ACCESS_KEY_ID", "")
	viper.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_BUCKET", "beerlab-images")
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("MINIO_USE_SSL", false)

	// Read from .env files based on environment
	_ = viper.BindEnv("ENVIRONMENT")
	env := viper.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev" // Use "dev" to match .env.dev filename
	}

	// Try to read .env file for the current environment
	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Read .env file (ignore error if file doesn't exist)
	_ = viper.ReadInConfig()

	// Environment variables override .env file values
	viper.AutomaticEnv()

	var config Config
	config.Server.Port = viper.GetString("PORT")
	config.Server.Env = viper.GetString("ENVIRONMENT")
	config.Server.LogLevel = viper.GetString("LOG_LEVEL")
	config.Server.AllowedOrigins = splitList(viper.GetString("ALLOWED_ORIGINS"))
	config.Server.ShutdownTimeout = viper.GetDuration("SHUTDOWN_TIMEOUT")
	config.Lab.Title = viper.GetString("LAB_TITLE")
	config.Lab.DefaultWavelengthInput = unescapeNewlines(viper.GetString("DEFAULT_WAVELENGTH_INPUT"))
	config.Lab.DefaultConcentrationInput = unescapeNewlines(viper.GetString("DEFAULT_CONCENTRATION_INPUT"))
	config.Images.Source = viper.GetString("IMAGE_SOURCE")
	config.Images.Names = splitList(viper.GetString("IMAGE_NAMES"))
	config.Images.Dir = viper.GetString("IMAGE_DIR")
	config.Images.URLExpiry = viper.GetDuration("IMAGE_URL_EXPIRY")
	config.AWS.Region = viper.GetString("AWS_REGION")
	config.AWS.AccessKeyID = viper.GetString("AWS_ACCESS_KEY_ID")
	config.AWS.SecretAccessKey = viper.GetString("AWS_SECRET_ACCESS_KEY")
	config.AWS.S3Bucket = viper.GetString("S3_BUCKET")
	config.AWS.S3Endpoint = viper.GetString("S3_ENDPOINT")
	config.AWS.MinioUseSSL = viper.GetBool("MINIO_USE_SSL")

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}

	log.Debug().
		Str("env", config.Server.Env).
		Str("image_source", config.Images.Source).
		Strs("images", config.Images.Names).
		Strs("allowed_origins", config.Server.AllowedOrigins).
		Msg("Configuration loaded")

	return &config, nil
}

// Storage returns the image store configuration
func (c *Config) Storage() storage.Config {
	return storage.Config{
		Source:    c.Images.Source,
		Dir:       c.Images.Dir,
		Bucket:    c.AWS.S3Bucket,
		Endpoint:  c.AWS.S3Endpoint,
		Region:    c.AWS.Region,
		AccessKey: c.AWS.AccessKeyID,
		SecretKey: c.AWS.SecretAccessKey,
		UseSSL:    c.AWS.MinioUseSSL,
		URLExpiry: c.Images.URLExpiry,
	}
}

// splitList splits a comma-separated setting, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// unescapeNewlines lets multi-line defaults be written as "\n" in env files
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// Package config loads the service configuration from OCR_-prefixed
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration.
type Config struct {
	Host             string
	Port             int
	KeepAliveTimeout time.Duration

	// MaxFileSize caps image uploads; MaxPDFSize caps PDF uploads.
	MaxFileSize int64
	MaxPDFSize  int64

	// RequestTimeout is the per-request deadline around the OCR pipeline.
	RequestTimeout time.Duration

	// EngineConcurrency bounds concurrent native inference calls.
	EngineConcurrency int
	// EngineLanguages lists the trained-data languages for the runtime.
	EngineLanguages []string

	WarmupEnabled   bool
	WarmupImagePath string

	LogLevel  string
	LogFormat string
}

// AllowedImageTypes is the content-type allow-list for /upload.
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// AllowedPDFTypes is the content-type allow-list for /upload_pdf.
var AllowedPDFTypes = []string{"application/pdf", "image/pdf"}

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Host:              getEnvOrDefault("OCR_HOST", "0.0.0.0"),
		Port:              getEnvAsIntOrDefault("OCR_PORT", 7850),
		KeepAliveTimeout:  time.Duration(getEnvAsIntOrDefault("OCR_TIMEOUT_KEEP_ALIVE", 300)) * time.Second,
		MaxFileSize:       getEnvAsInt64OrDefault("OCR_MAX_FILE_SIZE", 10*1024*1024),
		MaxPDFSize:        getEnvAsInt64OrDefault("OCR_MAX_PDF_SIZE", 10*1024*1024*1024),
		RequestTimeout:    time.Duration(getEnvAsIntOrDefault("OCR_REQUEST_TIMEOUT", 120)) * time.Second,
		EngineConcurrency: getEnvAsIntOrDefault("OCR_ENGINE_CONCURRENCY", 2),
		WarmupEnabled:     getEnvAsBoolOrDefault("OCR_WARMUP_ENABLED", true),
		WarmupImagePath:   getEnvOrDefault("OCR_WARMUP_IMAGE_PATH", ""),
		LogLevel:          getEnvOrDefault("OCR_LOG_LEVEL", "INFO"),
		LogFormat:         getEnvOrDefault("OCR_LOG_FORMAT", "text"),
	}

	if langs := getEnvOrDefault("OCR_ENGINE_LANGUAGES", ""); langs != "" {
		cfg.EngineLanguages = strings.Split(langs, ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("OCR_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxFileSize < 1024 {
		return fmt.Errorf("OCR_MAX_FILE_SIZE must be at least 1KB, got %d", c.MaxFileSize)
	}
	if c.EngineConcurrency < 1 || c.EngineConcurrency > 64 {
		return fmt.Errorf("OCR_ENGINE_CONCURRENCY must be between 1 and 64, got %d", c.EngineConcurrency)
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("OCR_REQUEST_TIMEOUT must be at least 1 second, got %s", c.RequestTimeout)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.EqualFold(valueStr, "true") || valueStr == "1"
}

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "INSPECTOR_CONFIG"

// Storage backends
const (
	StorageHTTP  = "http"
	StorageAzure = "azure"
	StorageLocal = "local"
)

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	ImageFetchTimeout  time.Duration `yaml:"imageFetchTimeout"`
	AnalysisTimeout    time.Duration `yaml:"analysisTimeout"`
	MaxRequestBodySize int64         `yaml:"maxRequestBodySize"`
	LogLevel           string        `yaml:"logLevel"`

	StorageBackend      string   `yaml:"storageBackend"`
	AzureStorageAccount string   `yaml:"azureStorageAccount"`
	AzureStorageKey     string   `yaml:"azureStorageKey"`
	LocalImageRoot      string   `yaml:"localImageRoot"`
	AllowedImageHosts   []string `yaml:"allowedImageHosts"`

	// DatabaseDSN selects Postgres persistence; empty keeps history in memory
	DatabaseDSN  string `yaml:"databaseDsn"`
	HistoryLimit int    `yaml:"historyLimit"`

	OCREnabled  bool   `yaml:"ocrEnabled"`
	OCRLanguage string `yaml:"ocrLanguage"`

	ScorerConcurrent bool `yaml:"scorerConcurrent"`
	ScorerMaxWorkers int  `yaml:"scorerMaxWorkers"`
	BatchConcurrency int  `yaml:"batchConcurrency"`
	// MaxPixels rejects images whose physical pixel count exceeds it
	MaxPixels int64 `yaml:"maxPixels"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		ImageFetchTimeout:  15 * time.Second,
		AnalysisTimeout:    20 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		LogLevel:           "info",
		StorageBackend:     StorageHTTP,
		HistoryLimit:       1000,
		OCREnabled:         false,
		OCRLanguage:        "eng",
		ScorerConcurrent:   true,
		ScorerMaxWorkers:   0,
		BatchConcurrency:   4,
		MaxPixels:          50_000_000,
	}
}

// Load applies defaults, then the YAML file named by INSPECTOR_CONFIG (if
// set), then environment overrides, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays keys present in the file onto the current values
func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Host = getEnvOrDefault("HOST", c.Host)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", c.ImageFetchTimeout)
	c.AnalysisTimeout = parseDurationOrDefault("ANALYSIS_TIMEOUT", c.AnalysisTimeout)
	c.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", c.MaxRequestBodySize)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	c.StorageBackend = strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", c.StorageBackend))
	c.AzureStorageAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", c.AzureStorageAccount)
	c.AzureStorageKey = getEnvOrDefault("AZURE_STORAGE_KEY", c.AzureStorageKey)
	c.LocalImageRoot = getEnvOrDefault("LOCAL_IMAGE_ROOT", c.LocalImageRoot)
	if v := os.Getenv("ALLOWED_IMAGE_HOSTS"); v != "" {
		c.AllowedImageHosts = splitList(v)
	}

	c.DatabaseDSN = getEnvOrDefault("DATABASE_DSN", c.DatabaseDSN)
	c.HistoryLimit = int(parseIntOrDefault("HISTORY_LIMIT", int64(c.HistoryLimit)))

	c.OCREnabled = parseBoolOrDefault("OCR_ENABLED", c.OCREnabled)
	c.OCRLanguage = getEnvOrDefault("OCR_LANGUAGE", c.OCRLanguage)

	c.ScorerConcurrent = parseBoolOrDefault("SCORER_CONCURRENT", c.ScorerConcurrent)
	c.ScorerMaxWorkers = int(parseIntOrDefault("SCORER_MAX_WORKERS", int64(c.ScorerMaxWorkers)))
	c.BatchConcurrency = int(parseIntOrDefault("BATCH_CONCURRENCY", int64(c.BatchConcurrency)))
	c.MaxPixels = parseIntOrDefault("MAX_PIXELS", c.MaxPixels)
}

// Validate checks ranges and backend-specific requirements
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}

	switch c.StorageBackend {
	case StorageHTTP:
	case StorageAzure:
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" {
			return fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
	case StorageLocal:
		if c.LocalImageRoot == "" {
			return fmt.Errorf("local storage requires LOCAL_IMAGE_ROOT")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be > 0 (got %d)", c.HistoryLimit)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be > 0 (got %d)", c.BatchConcurrency)
	}
	if c.ScorerMaxWorkers < 0 {
		return fmt.Errorf("SCORER_MAX_WORKERS must be >= 0 (got %d)", c.ScorerMaxWorkers)
	}
	if c.MaxPixels <= 0 {
		return fmt.Errorf("MAX_PIXELS must be > 0 (got %d)", c.MaxPixels)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

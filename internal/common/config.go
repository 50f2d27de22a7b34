package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	Analytics  AnalyticsConfig
	Queue      QueueConfig
	Ingest     IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// ExtractionConfig holds extraction-related configuration
type ExtractionConfig struct {
	// VendorScanLines is how many leading lines the vendor extractor inspects.
	VendorScanLines int
	// MaxTextBytes caps the size of a single ingested receipt text file.
	MaxTextBytes int
}

// AnalyticsConfig holds analytics-related configuration
type AnalyticsConfig struct {
	// DefaultWindow is the moving-average window when a query does not set one.
	DefaultWindow int
}

// QueueConfig holds batch-queue configuration
type QueueConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// IngestConfig holds directory-ingest configuration. WatchDirs empty
// disables the watcher.
type IngestConfig struct {
	WatchDirs  []string
	Debounce   time.Duration
	SkipHidden bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("RECEIPTLENS_DB_URL", "file:receiptlens.db"),
			MaxConns:        getEnvAsInt32("RECEIPTLENS_DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("RECEIPTLENS_DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("RECEIPTLENS_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("RECEIPTLENS_DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("RECEIPTLENS_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("RECEIPTLENS_HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("RECEIPTLENS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Extraction: ExtractionConfig{
			VendorScanLines: getEnvAsInt("RECEIPTLENS_VENDOR_SCAN_LINES", 5),
			MaxTextBytes:    getEnvAsInt("RECEIPTLENS_MAX_TEXT_BYTES", 64*1024),
		},
		Analytics: AnalyticsConfig{
			DefaultWindow: getEnvAsInt("RECEIPTLENS_DEFAULT_WINDOW", 3),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("RECEIPTLENS_QUEUE_WORKERS", 4),
			QueueSize:  getEnvAsInt("RECEIPTLENS_QUEUE_SIZE", 64),
			JobTimeout: getEnvAsDuration("RECEIPTLENS_JOB_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			WatchDirs:  getEnvAsSlice("RECEIPTLENS_WATCH_DIRS"),
			Debounce:   getEnvAsDuration("RECEIPTLENS_WATCH_DEBOUNCE", 500*time.Millisecond),
			SkipHidden: getEnvAsBool("RECEIPTLENS_SKIP_HIDDEN", true),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated value, dropping empty parts.
func getEnvAsSlice(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "RECEIPTLENS_DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "RECEIPTLENS_HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Extraction.VendorScanLines < 1 {
		return NewAppError("CONFIG_ERROR", "RECEIPTLENS_VENDOR_SCAN_LINES must be positive", ErrInvalidInput)
	}
	if c.Analytics.DefaultWindow < 1 {
		return NewAppError("CONFIG_ERROR", "RECEIPTLENS_DEFAULT_WINDOW must be positive", ErrInvalidInput)
	}
	if c.Queue.Workers < 1 || c.Queue.QueueSize < 1 {
		return NewAppError("CONFIG_ERROR", "queue workers and size must be positive", ErrInvalidInput)
	}
	return nil
}

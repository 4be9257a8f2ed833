package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	Storage  StorageConfig
	Fetch    FetchConfig
	Universe UniverseConfig
	Server   ServerConfig
	Backup   BackupConfig
}

// StorageConfig holds the persisted-storage configuration
type StorageConfig struct {
	// Backend selects the storage medium: "sqlite", "file" or "memory".
	Backend string
	Path    string
	// CompressionThreshold is the byte ceiling above which the dataset is
	// compressed, and the hard limit a compressed dataset may not exceed.
	CompressionThreshold int
}

// FetchConfig holds retrieval orchestrator configuration
type FetchConfig struct {
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	RequestDelay time.Duration
	Timeout      time.Duration
	Range        string
}

// UniverseConfig holds the stock-universe loader configuration
type UniverseConfig struct {
	CSVPath string
	// MaxStocks caps the universe size. The cap is an explicit setting, not
	// inferred from the build environment.
	MaxStocks int
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port              int
	BasicAuthUser     string
	BasicAuthPassword string
	RefreshSchedule   string
}

// BackupConfig holds SMTP backup configuration
type BackupConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	ToEmail  string
}

// DefaultCompressionThreshold is roughly 4.7MB, matching the practical
// per-record ceiling of the storage medium.
const DefaultCompressionThreshold = 4928307 // int(4.7 * 1024 * 1024)

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Storage: StorageConfig{
			Backend:              getEnv("STORAGE_BACKEND", "sqlite"),
			Path:                 getEnv("STORAGE_PATH", "screener.db"),
			CompressionThreshold: getEnvAsInt("STORAGE_COMPRESSION_THRESHOLD", DefaultCompressionThreshold),
		},
		Fetch: FetchConfig{
			BaseURL:      getEnv("FETCH_BASE_URL", "https://query1.finance.yahoo.com"),
			MaxRetries:   getEnvAsInt("FETCH_MAX_RETRIES", 3),
			RetryDelay:   getEnvAsDuration("FETCH_RETRY_DELAY", 2*time.Second),
			RequestDelay: getEnvAsDuration("FETCH_REQUEST_DELAY", 500*time.Millisecond),
			Timeout:      getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
			Range:        getEnv("FETCH_RANGE", "6mo"),
		},
		Universe: UniverseConfig{
			CSVPath:   getEnv("UNIVERSE_CSV_PATH", "jpx400.csv"),
			MaxStocks: getEnvAsInt("UNIVERSE_MAX_STOCKS", 400),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BasicAuthUser:     getEnv("BASIC_AUTH_USER", ""),
			BasicAuthPassword: getEnv("BASIC_AUTH_PASSWORD", ""),
			RefreshSchedule:   getEnv("REFRESH_SCHEDULE", ""),
		},
		Backup: BackupConfig{
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnvAsInt("SMTP_PORT", 465),
			SMTPUser: getEnv("SMTP_USER", ""),
			SMTPPass: getEnv("SMTP_PASS", ""),
			ToEmail:  getEnv("BACKUP_TO_EMAIL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "file", "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be sqlite, file or memory, got %q", c.Storage.Backend)
	}
	if c.Storage.CompressionThreshold <= 0 {
		return fmt.Errorf("STORAGE_COMPRESSION_THRESHOLD must be positive")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be at least 1")
	}
	if c.Universe.MaxStocks < 1 {
		return fmt.Errorf("UNIVERSE_MAX_STOCKS must be at least 1")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultGitHubAPIURL is the public GitHub REST endpoint
	DefaultGitHubAPIURL = "https://api.github.com/"

	// DefaultRateLimitThreshold is the minimum remaining quota before requests are held back
	DefaultRateLimitThreshold = 100

	// DefaultRateLimitDelay is the pause between two quota checks while below the threshold
	DefaultRateLimitDelay = 60 * time.Second

	reportSuffix = "_repo_dependency_licensing.csv"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken  string
	GitHubOrg    string
	GitHubAPIURL string

	// Rate limiting
	RateLimitThreshold int
	RateLimitDelay     time.Duration

	// Output
	OutputPath string
	ReportDir  string

	// Logging
	LogLevel string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	threshold, err := getEnvInt("RATE_LIMIT_THRESHOLD", DefaultRateLimitThreshold)
	if err != nil {
		return nil, err
	}
	delay, err := getEnvDuration("RATE_LIMIT_DELAY", DefaultRateLimitDelay)
	if err != nil {
		return nil, err
	}

	return &Config{
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubOrg:          getEnv("GITHUB_ORG", ""),
		GitHubAPIURL:       getEnv("GITHUB_API_URL", DefaultGitHubAPIURL),
		RateLimitThreshold: threshold,
		RateLimitDelay:     delay,
		OutputPath:         getEnv("OUTPUT_PATH", ""),
		ReportDir:          getEnv("REPORT_DIR", "."),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		APIPort:            getEnv("API_PORT", "8080"),
		APIHost:            getEnv("API_HOST", "localhost"),
		APIEndpoint:        getEnv("API_ENDPOINT", "http://localhost:8080"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a duration such as 60s or 1m"}
	}
	return d, nil
}

// Validate validates the configuration required to run an export.
// The token is checked first, then the organization.
func (c *Config) Validate() error {
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "not found in environment variables"}
	}
	if c.GitHubOrg == "" {
		return &ConfigError{Field: "GITHUB_ORG", Message: "not found in environment variables"}
	}
	if c.RateLimitThreshold < 0 {
		return &ConfigError{Field: "RATE_LIMIT_THRESHOLD", Message: "must not be negative"}
	}
	if c.RateLimitDelay <= 0 {
		return &ConfigError{Field: "RATE_LIMIT_DELAY", Message: "must be positive"}
	}
	return nil
}

// ReportPath returns the CSV report location for an organization.
// OutputPath wins when set and org is the configured organization.
func (c *Config) ReportPath(org string) string {
	if c.OutputPath != "" && org == c.GitHubOrg {
		return c.OutputPath
	}
	return filepath.Join(c.ReportDir, ReportFileName(org))
}

// ReportFileName is the deterministic report file name for an organization
func ReportFileName(org string) string {
	return org + reportSuffix
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

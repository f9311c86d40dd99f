// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the server runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short names and their long aliases
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	Verbose           bool
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Upstream child health API
	UpstreamBaseURL    string
	VaccineProfilePath string // Must contain {childId}
	UpstreamTimeout    time.Duration
	MaxUpstreamBody    int64

	BookPageSize     int
	RefreshInterval  time.Duration
	EvictionInterval time.Duration
	ViewIdleTTL      time.Duration
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		Verbose:           getBoolEnvWithDefault("VERBOSE", false),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		UpstreamBaseURL:    getEnvWithDefault("UPSTREAM_BASE_URL", "http://127.0.0.1:5000/api"),
		VaccineProfilePath: getEnvWithDefault("VACCINE_PROFILE_PATH", "/child-vaccine-profiles/child/{childId}"),
		UpstreamTimeout:    getDurationEnvWithDefault("UPSTREAM_TIMEOUT", 10*time.Second),
		MaxUpstreamBody:    getInt64EnvWithDefault("MAX_UPSTREAM_BODY", 5242880), // 5MB default

		BookPageSize:     getIntEnvWithDefault("BOOK_PAGE_SIZE", 3),
		RefreshInterval:  getDurationEnvWithDefault("REFRESH_INTERVAL", 15*time.Minute),
		EvictionInterval: getDurationEnvWithDefault("EVICTION_INTERVAL", 5*time.Minute),
		ViewIdleTTL:      getDurationEnvWithDefault("VIEW_IDLE_TTL", 30*time.Minute),
	}

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}
	cfg.Env = env

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxUpstreamBody, "MAX_UPSTREAM_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_UPSTREAM_BODY: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateUpstream(cfg.UpstreamBaseURL, cfg.VaccineProfilePath); err != nil {
		return fmt.Errorf("invalid upstream settings: %w", err)
	}

	if cfg.BookPageSize < 1 || cfg.BookPageSize > 100 {
		return fmt.Errorf("invalid BOOK_PAGE_SIZE: must be between 1 and 100, got: %d", cfg.BookPageSize)
	}

	durations := []struct {
		name  string
		value time.Duration
		min   time.Duration
	}{
		{"UPSTREAM_TIMEOUT", cfg.UpstreamTimeout, 100 * time.Millisecond},
		{"REFRESH_INTERVAL", cfg.RefreshInterval, 10 * time.Second},
		{"EVICTION_INTERVAL", cfg.EvictionInterval, 10 * time.Second},
		{"VIEW_IDLE_TTL", cfg.ViewIdleTTL, time.Minute},
	}
	for _, d := range durations {
		if d.value < d.min {
			return fmt.Errorf("invalid %s: must be at least %s, got: %s", d.name, d.min, d.value)
		}
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" || address == "0.0.0.0" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateUpstream checks the base URL and the profile path template
func validateUpstream(baseURL, profilePath string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("UPSTREAM_BASE_URL must use http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must include a host")
	}

	if !strings.HasPrefix(profilePath, "/") {
		return fmt.Errorf("VACCINE_PROFILE_PATH must start with '/', got: %s", profilePath)
	}

	if !strings.Contains(profilePath, "{childId}") {
		return fmt.Errorf("VACCINE_PROFILE_PATH must contain the {childId} placeholder, got: %s", profilePath)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go duration strings ("30s", "15m")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"VERBOSE",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"UPSTREAM_BASE_URL",
		"VACCINE_PROFILE_PATH",
		"UPSTREAM_TIMEOUT",
		"MAX_UPSTREAM_BODY",
		"BOOK_PAGE_SIZE",
		"REFRESH_INTERVAL",
		"EVICTION_INTERVAL",
		"VIEW_IDLE_TTL",
	}
}

// Package config has the configuration for the NVC sync job
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Environment is the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// DefaultAPIURL is the production NVC API host
const DefaultAPIURL = "https://nvc-cnv.canada.ca"

// Config holds all application configuration
type Config struct {
	// Upstream
	APIURL       string
	AppDesc      string // value of the x-app-desc header
	HTTPTimeout  time.Duration
	FetchRetries int

	// Output
	OutputDir   string
	TableDir    string // relative to OutputDir
	VersionFile string // relative to OutputDir

	// Transform
	Languages       []string
	UseDesignations bool
	GateOnVersion   bool
	AuxLookups      []string

	// Runtime
	Env               Environment
	LogLevel          string
	LogDir            string // empty disables file logging
	LogRetentionWeeks int    // Number of weeks to keep log files
	MaxLogFileSize    int64  // Maximum log file size in bytes

	// Serve mode
	Port           string
	Address        string
	ScheduleAt     []string // daily run times, HH:MM
	MaxRequestBody int64    // Maximum request body size in bytes
	MaxHeaderSize  int64    // Maximum header size in bytes
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		APIURL:       getEnvWithDefault("API_URL", DefaultAPIURL),
		AppDesc:      getEnvWithDefault("APP_DESC", "PHAC-PDIR-IIB"),
		HTTPTimeout:  getDurationEnvWithDefault("HTTP_TIMEOUT", 30*time.Second),
		FetchRetries: getIntEnvWithDefault("FETCH_RETRIES", 0),

		OutputDir:   getEnvWithDefault("OUTPUT_DIR", "."),
		TableDir:    getEnvWithDefault("TABLE_DIR", "vaccine-table"),
		VersionFile: getEnvWithDefault("VERSION_FILE", "nvc-version.json"),

		Languages:       getListEnvWithDefault("LANGUAGES", []string{"en", "fr"}),
		UseDesignations: getBoolEnvWithDefault("USE_DESIGNATIONS", true),
		GateOnVersion:   getBoolEnvWithDefault("GATE_ON_VERSION", false),
		AuxLookups:      getListEnvWithDefault("AUX_LOOKUPS", []string{"disease", "mah"}),

		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", string(EnvDevelopment)))),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            os.Getenv("LOG_DIR"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default

		Port:           getEnvWithDefault("PORT", "8000"),
		Address:        getEnvWithDefault("ADDRESS", "127.0.0.1"),
		ScheduleAt:     getListEnvWithDefault("SCHEDULE_AT", []string{"06:00"}),
		MaxRequestBody: getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576), // 1MB default
		MaxHeaderSize:  getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),  // 1MB default
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateAPIURL(cfg.APIURL); err != nil {
		return fmt.Errorf("invalid API_URL: %w", err)
	}

	if strings.TrimSpace(cfg.AppDesc) == "" {
		return fmt.Errorf("invalid APP_DESC: APP_DESC cannot be empty")
	}

	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT: must be positive, got: %s", cfg.HTTPTimeout)
	}

	if cfg.FetchRetries < 0 || cfg.FetchRetries > 10 {
		return fmt.Errorf("invalid FETCH_RETRIES: must be between 0 and 10, got: %d", cfg.FetchRetries)
	}

	if err := validateRelativePath(cfg.TableDir, "TABLE_DIR"); err != nil {
		return fmt.Errorf("invalid TABLE_DIR: %w", err)
	}

	if err := validateRelativePath(cfg.VersionFile, "VERSION_FILE"); err != nil {
		return fmt.Errorf("invalid VERSION_FILE: %w", err)
	}

	languages, err := validateLanguages(cfg.Languages)
	if err != nil {
		return fmt.Errorf("invalid LANGUAGES: %w", err)
	}
	cfg.Languages = languages

	if len(cfg.AuxLookups) == 1 && cfg.AuxLookups[0] == "none" {
		cfg.AuxLookups = []string{}
	}
	if err := validateAuxLookups(cfg.AuxLookups); err != nil {
		return fmt.Errorf("invalid AUX_LOOKUPS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateScheduleAt(cfg.ScheduleAt); err != nil {
		return fmt.Errorf("invalid SCHEDULE_AT: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	return nil
}

// validateAPIURL validates the API_URL environment variable
func validateAPIURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("API_URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("API_URL must be a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_URL must use http or https, got: %s", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("API_URL must include a host, got: %s", raw)
	}

	return nil
}

// validateRelativePath makes sure output locations stay inside OUTPUT_DIR
func validateRelativePath(p, configName string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%s cannot be empty", configName)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return fmt.Errorf("%s must be a relative path inside OUTPUT_DIR, got: %s", configName, p)
	}
	return nil
}

// validateLanguages checks every entry is a bare BCP-47 language and returns
// the normalized, de-duplicated list
func validateLanguages(languages []string) ([]string, error) {
	if len(languages) == 0 {
		return nil, fmt.Errorf("LANGUAGES cannot be empty")
	}

	seen := make(map[string]bool, len(languages))
	normalized := make([]string, 0, len(languages))

	for _, lang := range languages {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid language tag: %w", lang, err)
		}

		base, confidence := tag.Base()
		if confidence != language.Exact || base.String() != strings.ToLower(lang) {
			return nil, fmt.Errorf("%q must be a bare language code such as en or fr", lang)
		}

		code := base.String()
		if seen[code] {
			continue
		}
		seen[code] = true
		normalized = append(normalized, code)
	}

	return normalized, nil
}

// validateAuxLookups validates the AUX_LOOKUPS environment variable
func validateAuxLookups(lookups []string) error {
	validLookups := []string{"disease", "mah"}

	for _, lookup := range lookups {
		valid := false
		for _, v := range validLookups {
			if lookup == v {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("AUX_LOOKUPS entries must be one of: %v, got: %s", validLookups, lookup)
		}
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
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

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateScheduleAt validates the SCHEDULE_AT environment variable
func validateScheduleAt(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("SCHEDULE_AT cannot be empty")
	}

	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("SCHEDULE_AT entries must be HH:MM, got: %s", t)
		}
	}

	return nil
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

// getBoolEnvWithDefault gets an environment variable as bool with a default value
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault gets an environment variable as a duration with a default value
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnvWithDefault splits a comma or semicolon separated variable
func getListEnvWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// IsTest reports whether the job runs under ENV=test
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

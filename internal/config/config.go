// Package config provides configuration for the mnemonic backend.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	apperrors "mnemonic-backend/internal/errors"
)

// Environment names.
const (
	Development = "development"
	Production  = "production"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Logging
	LogLevel string

	// Category patterns file (YAML); built-in defaults are used when empty
	CategoryFile string

	// Tracing
	OTLPEndpoint string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool

	// Suggestion lookups
	MaxSuggestions int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),
		Environment:    getEnv("ENVIRONMENT", Development),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CategoryFile:   getEnv("CATEGORY_FILE", ""),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableTracing:  getEnvBool("ENABLE_TRACING", false),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
		MaxSuggestions: getEnvInt("MAX_SUGGESTIONS", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Environment != Development && c.Environment != Production {
		return apperrors.NewValidation(fmt.Sprintf("unknown environment %q", c.Environment))
	}
	if c.MaxSuggestions < 1 {
		return apperrors.NewValidation("MAX_SUGGESTIONS must be at least 1")
	}
	return nil
}

// DefaultCategories are the built-in error-category pattern sets, used
// when no category file is configured.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"build": {
			`npm (install|run|ci)`,
			`yarn (install|add|build)`,
			`compilation (failed|error)`,
			`cannot find module`,
		},
		"permissions": {
			`EACCES`,
			`permission denied`,
			`operation not permitted`,
		},
		"network": {
			`ECONNREFUSED`,
			`ETIMEDOUT`,
			`getaddrinfo`,
			`network (error|unreachable)`,
		},
		"database": {
			`connection pool`,
			`deadlock detected`,
			`duplicate key`,
			`relation .* does not exist`,
		},
		"auth": {
			`unauthorized`,
			`invalid (token|credentials)`,
			`jwt (expired|malformed)`,
		},
	}
}

// LoadCategories returns the category pattern sets: the YAML file when
// configured, the built-in defaults otherwise.
func (c *Config) LoadCategories() (map[string][]string, error) {
	if c.CategoryFile == "" {
		return DefaultCategories(), nil
	}
	return ReadCategoryFile(c.CategoryFile)
}

// ReadCategoryFile parses a YAML mapping of category name to regex
// pattern list.
func ReadCategoryFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read category file")
	}
	categories := make(map[string][]string)
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse category file")
	}
	return categories, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

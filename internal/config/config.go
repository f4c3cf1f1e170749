package config

import (
	"os"
	"strconv"

	"socassay/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Trial    TrialConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings.
// URL is optional: without it results are kept in memory only.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// TrialConfig holds field-trial input settings
type TrialConfig struct {
	FilePath          string
	SentinelDepth     string
	ExcludedTreatment string
	BeforeYear        int
	AfterYear         int
}

// AnalysisConfig holds simulation and permutation settings
type AnalysisConfig struct {
	Permutations int
	Seed         int64
	Replicates   int
	Trials       int
	Threshold    float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Trial: TrialConfig{
			FilePath:          getEnvOrDefault("TRIAL_FILE", ""),
			SentinelDepth:     getEnvOrDefault("SENTINEL_DEPTH", "TOT"),
			ExcludedTreatment: getEnvOrDefault("EXCLUDED_TREATMENT", ""),
			BeforeYear:        getEnvIntOrDefault("BEFORE_YEAR", 0),
			AfterYear:         getEnvIntOrDefault("AFTER_YEAR", 0),
		},
		Analysis: AnalysisConfig{
			Permutations: getEnvIntOrDefault("PERMUTATIONS", 5000),
			Seed:         getEnvInt64OrDefault("SEED", 42),
			Replicates:   getEnvIntOrDefault("REPLICATES", 50),
			Trials:       getEnvIntOrDefault("TRIALS", 1000),
			Threshold:    getEnvFloatOrDefault("THRESHOLD", 0.05),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Analysis.Permutations < 1 {
		return errors.ConfigInvalid("PERMUTATIONS must be positive")
	}
	if config.Analysis.Replicates < 2 {
		return errors.ConfigInvalid("REPLICATES must be at least 2")
	}
	if config.Analysis.Threshold <= 0 {
		return errors.ConfigInvalid("THRESHOLD must be positive")
	}
	if config.Trial.FilePath != "" && config.Trial.BeforeYear >= config.Trial.AfterYear {
		return errors.ConfigInvalid("BEFORE_YEAR must precede AFTER_YEAR when TRIAL_FILE is set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

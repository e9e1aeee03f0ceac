package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JTSmullen/AthletiTrade/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Stats Feed
	StatsBaseURL    string
	StatsTimeout    time.Duration
	StatsMaxRetries int

	// Pricing Parameters
	PricingInterval    time.Duration
	RollingWindowGames int
	VolumeImpact       float64 // price delta per net traded share (e.g. 0.01)
	PriceScaleFactor   float64 // multiplier from weighted score to dollars

	// Users
	StartingBalance float64 // balance credited to newly created users

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Stats Feed
	cfg.StatsBaseURL = getEnv("STATS_API_BASE_URL", "")
	if cfg.StatsBaseURL == "" {
		errs = append(errs, "STATS_API_BASE_URL must be set")
	}

	statsTimeoutSeconds, err := getEnvAsIntRequired("STATS_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STATS_TIMEOUT_SECONDS: %v", err))
	} else if statsTimeoutSeconds <= 0 {
		errs = append(errs, "STATS_TIMEOUT_SECONDS must be positive")
	}
	cfg.StatsTimeout = time.Duration(statsTimeoutSeconds) * time.Second

	cfg.StatsMaxRetries, err = getEnvAsIntRequired("STATS_MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STATS_MAX_RETRIES: %v", err))
	} else if cfg.StatsMaxRetries < 0 {
		errs = append(errs, "STATS_MAX_RETRIES cannot be negative")
	}

	// Pricing Parameters
	pricingIntervalMinutes, err := getEnvAsIntRequired("PRICING_INTERVAL_MINUTES", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICING_INTERVAL_MINUTES: %v", err))
	} else if pricingIntervalMinutes <= 0 {
		errs = append(errs, "PRICING_INTERVAL_MINUTES must be positive")
	}
	cfg.PricingInterval = time.Duration(pricingIntervalMinutes) * time.Minute

	cfg.RollingWindowGames, err = getEnvAsIntRequired("ROLLING_WINDOW_GAMES", 20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ROLLING_WINDOW_GAMES: %v", err))
	} else if cfg.RollingWindowGames <= 0 {
		errs = append(errs, "ROLLING_WINDOW_GAMES must be positive")
	}

	cfg.VolumeImpact, err = getEnvAsFloatRequired("VOLUME_IMPACT", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid VOLUME_IMPACT: %v", err))
	} else if cfg.VolumeImpact < 0 {
		errs = append(errs, "VOLUME_IMPACT cannot be negative")
	}

	cfg.PriceScaleFactor, err = getEnvAsFloatRequired("PRICE_SCALE_FACTOR", 10.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_SCALE_FACTOR: %v", err))
	} else if cfg.PriceScaleFactor <= 0 {
		errs = append(errs, "PRICE_SCALE_FACTOR must be positive")
	}

	// Users
	cfg.StartingBalance, err = getEnvAsFloatRequired("STARTING_BALANCE", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_BALANCE: %v", err))
	} else if cfg.StartingBalance < 0 {
		errs = append(errs, "STARTING_BALANCE cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/athletitrade.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ChainID is the EVM chain the market feed is queried for (e.g., 42161 for Arbitrum).
	ChainID int

	// RedisAddr is the Redis endpoint for the shared market cache. Empty selects the in-process cache.
	RedisAddr string
	// RedisPassword is the optional Redis password.
	RedisPassword string

	// MarketCacheTTL is how long a fetched market snapshot is served before refetching.
	MarketCacheTTL time.Duration
	// MarketRefreshInterval is how often the background loop warms the market cache.
	MarketRefreshInterval time.Duration

	// WebPort is the port the HTTP API listens on.
	WebPort string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// ParametersFile optionally points at a YAML file overriding DefaultScoringParameters.
	ParametersFile string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Only the market feed endpoint is required; everything else falls back to a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ChainID, err = getEnvAsIntOrDefault("PENDLE_CHAIN_ID", DefaultChainID)
	if err != nil {
		return err
	}
	if _, ok := SupportedChains[ChainID]; !ok {
		return errors.New("environment variable PENDLE_CHAIN_ID is not a supported chain: " + strconv.Itoa(ChainID))
	}

	RedisAddr = getEnvOrDefault("REDIS_ADDR", "")
	RedisPassword = getEnvOrDefault("REDIS_PASSWORD", "")

	MarketCacheTTL, err = getEnvAsDurationOrDefault("MARKET_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return err
	}

	MarketRefreshInterval, err = getEnvAsDurationOrDefault("MARKET_REFRESH_INTERVAL", 10*time.Minute)
	if err != nil {
		return err
	}

	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	ParametersFile = getEnvOrDefault("SCORING_PARAMETERS_FILE", "")

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Int("ChainID", ChainID).
		Str("RedisAddr", RedisAddr).
		Dur("MarketCacheTTL", MarketCacheTTL).
		Str("WebPort", WebPort).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def when unset.
func getEnvOrDefault(key, def string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return def
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsIntOrDefault(key string, def int) (int, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOrDefault retrieves an environment variable as a time.Duration ("5m", "30s").
func getEnvAsDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return def, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive duration, got: " + valueStr)
	}
	return value, nil
}

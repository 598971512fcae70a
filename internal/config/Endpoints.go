package config

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PendleAPIBase is the base URL of the market-data feed.
	PendleAPIBase string
	// PortfolioAPIBase is the base URL of the wallet portfolio aggregator. Empty disables wallet lookups.
	PortfolioAPIBase string
	// PortfolioAPIKey is sent as a bearer token to the portfolio aggregator.
	PortfolioAPIKey string
)

const defaultPendleAPIBase = "https://api-v2.pendle.finance/core"

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	PendleAPIBase = strings.TrimRight(getEnvOrDefault("PENDLE_API_BASE", defaultPendleAPIBase), "/")
	PortfolioAPIBase = strings.TrimRight(getEnvOrDefault("PORTFOLIO_API_BASE", ""), "/")
	PortfolioAPIKey = getEnvOrDefault("PORTFOLIO_API_KEY", "")

	if PortfolioAPIBase != "" && PortfolioAPIKey == "" {
		log.Warn().Msg("PORTFOLIO_API_BASE is set without PORTFOLIO_API_KEY; wallet lookups will likely be rejected")
	}

	log.Debug().
		Str("PendleAPIBase", PendleAPIBase).
		Str("PortfolioAPIBase", PortfolioAPIBase).
		Bool("PortfolioAPIKeySet", PortfolioAPIKey != "").
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

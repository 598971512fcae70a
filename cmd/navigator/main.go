package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "navigator",
	Short: "Pendle Yield Navigator: PT/YT pool scoring and allocation recommendations",
	Long: `Scores Pendle PT/YT markets against a portfolio and recommends how to split each
holding between principal and yield tokens under a conservative, neutral or aggressive posture.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(resetDBCmd)
}

// main is the entry point for the navigator.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initEnvironment loads .env, reads configuration and sets up logging. Every command runs it first.
func initEnvironment() error {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		return err
	}

	logger.Initialize(config.LogLevel)
	return nil
}

// dbConfigFromEnv reads the DB_* variables. ok is false when no database is configured.
func dbConfigFromEnv() (cfg state.DBConfig, ok bool) {
	cfg = state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	return cfg, cfg.User != "" && cfg.DBName != ""
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

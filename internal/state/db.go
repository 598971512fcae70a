// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

var ErrDBNotInitialized = errors.New("database not initialized")

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN renders the config as a lib/pq connection string.
func (cfg DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(10)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = TestDBConnection(); err != nil {
		DB.Close()
		DB = nil
		return err
	}

	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to the PostgreSQL database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS scoring_parameters (
		params_id SERIAL PRIMARY KEY,
		version INTEGER NOT NULL DEFAULT 1,
		config_name VARCHAR(255) NOT NULL DEFAULT 'default',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		params JSONB NOT NULL,
		CONSTRAINT uq_scoring_parameters_config_version UNIQUE (config_name, version)
	);
	CREATE INDEX IF NOT EXISTS idx_scoring_parameters_config_active_timestamp ON scoring_parameters(config_name, is_active, activated_at DESC);

	CREATE TABLE IF NOT EXISTS recommendation_snapshots (
		snapshot_id SERIAL PRIMARY KEY,
		request_id VARCHAR(64) NOT NULL UNIQUE,
		snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		wallet_address VARCHAR(64),
		posture VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		scoring_params_id INTEGER REFERENCES scoring_parameters(params_id),
		asset_count INTEGER NOT NULL,
		pool_count INTEGER NOT NULL,
		total_value_usd DECIMAL(20, 8) NOT NULL DEFAULT 0,
		weighted_apy DECIMAL(12, 8) NOT NULL DEFAULT 0,
		pool_addresses TEXT[], -- recommended pools, for lookups without unpacking the JSON
		recommendations JSONB,
		summary JSONB
	);
	CREATE INDEX IF NOT EXISTS idx_recommendation_snapshots_timestamp ON recommendation_snapshots(snapshot_timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_recommendation_snapshots_wallet ON recommendation_snapshots(wallet_address);
`

const dropSchemaSQL = `
	DROP TABLE IF EXISTS recommendation_snapshots CASCADE;
	DROP TABLE IF EXISTS scoring_parameters CASCADE;
`

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured")
	return nil
}

// DropSchema removes every navigator table. Used by reset-db.
func DropSchema() error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	if _, err := DB.Exec(dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	log.Warn().Msg("Dropped navigator tables")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

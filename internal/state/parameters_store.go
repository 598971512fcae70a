// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/types"
)

var ErrNoActiveParameters = errors.New("no active scoring parameters")

// SaveScoringParameters saves a new version of scoring parameters. When makeActive is set the
// previously active version of configName is deactivated in the same transaction.
func SaveScoringParameters(params types.ScoringParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}
	if err := config.ValidateScoringParameters(params); err != nil {
		return 0, err
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal scoring parameters: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed
	defer tx.Rollback()

	if makeActive {
		stmtDeactivate := `UPDATE scoring_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		if _, err := tx.Exec(stmtDeactivate, configName); err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO scoring_parameters (
            version, config_name, is_active, activated_at, created_at, params
        ) VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING params_id;`

	var paramsID int64
	now := time.Now().UTC()
	if err := tx.QueryRow(stmt, version, configName, makeActive, now, now, payload).Scan(&paramsID); err != nil {
		return 0, fmt.Errorf("failed to insert scoring parameters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved scoring parameters")
	return paramsID, nil
}

// LoadActiveScoringParameters loads the currently active scoring parameters. Stored documents
// are overlaid on the defaults, so versions saved before a parameter existed still load.
func LoadActiveScoringParameters(configName string) (*types.ScoringParameters, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
        SELECT params_id, params
        FROM scoring_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	var payload []byte
	err := DB.QueryRow(query, configName).Scan(&paramsID, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for config '%s'", ErrNoActiveParameters, configName)
		}
		return nil, fmt.Errorf("failed to scan active scoring parameters for config '%s': %w", configName, err)
	}

	p := config.DefaultScoringParameters
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoring parameters %d: %w", paramsID, err)
	}
	if err := config.ValidateScoringParameters(p); err != nil {
		return nil, fmt.Errorf("stored scoring parameters %d: %w", paramsID, err)
	}

	log.Info().Str("config", configName).Int64("params_id", paramsID).Msg("Loaded active scoring parameters")
	return &p, nil
}

// GetActiveScoringParametersID returns the params_id of the currently active scoring parameters,
// or nil when none is active.
func GetActiveScoringParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
        SELECT params_id
        FROM scoring_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	err := DB.QueryRow(query, configName).Scan(&paramsID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug().Str("config", configName).Msg("No active scoring parameters found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active scoring parameters ID for config '%s': %w", configName, err)
	}
	return &paramsID, nil
}

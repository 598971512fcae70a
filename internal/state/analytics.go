package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/yield-navigator/pyn/internal/types"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	defaultSnapshotLimit = 10
	maxSnapshotLimit     = 100
)

// RecommendationStats represents aggregated data over every stored snapshot
type RecommendationStats struct {
	TotalSnapshots  int       `json:"total_snapshots"`
	OKSnapshots     int       `json:"ok_snapshots"`
	NoInputCount    int       `json:"no_input_count"`
	NoMatchCount    int       `json:"no_match_count"`
	DistinctWallets int       `json:"distinct_wallets"`
	TotalValueUSD   float64   `json:"total_value_usd"`
	AvgWeightedAPY  float64   `json:"avg_weighted_apy"` // Fraction, over ok snapshots
	LastSnapshotAt  time.Time `json:"last_snapshot_at,omitempty"`
}

const snapshotColumns = `
	snapshot_id, request_id, snapshot_timestamp, wallet_address, posture, status, scoring_params_id,
	asset_count, pool_count, pool_addresses, recommendations, summary`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (types.RecommendationSnapshot, error) {
	var (
		snap                         types.RecommendationSnapshot
		wallet                       sql.NullString
		paramsID                     sql.NullInt64
		posture, status              string
		poolAddresses                []string
		recommendationsJSON, summary []byte
	)

	err := row.Scan(
		&snap.SnapshotID, &snap.RequestID, &snap.Timestamp, &wallet, &posture, &status, &paramsID,
		&snap.AssetCount, &snap.PoolCount, pq.Array(&poolAddresses), &recommendationsJSON, &summary,
	)
	if err != nil {
		return snap, err
	}

	snap.WalletAddress = wallet.String
	snap.Posture = types.RiskPosture(posture)
	snap.Status = types.RecommendationStatus(status)
	if paramsID.Valid {
		id := paramsID.Int64
		snap.ScoringParamsID = &id
	}

	snap.Recommendations = []types.AssetRecommendation{}
	if len(recommendationsJSON) > 0 {
		if err := json.Unmarshal(recommendationsJSON, &snap.Recommendations); err != nil {
			return snap, fmt.Errorf("failed to unmarshal recommendations: %w", err)
		}
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &snap.Summary); err != nil {
			return snap, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}
	return snap, nil
}

// GetRecentSnapshots retrieves the most recent snapshots, newest first
func GetRecentSnapshots(limit int) ([]types.RecommendationSnapshot, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	if limit <= 0 || limit > maxSnapshotLimit {
		limit = defaultSnapshotLimit
	}

	query := `SELECT ` + snapshotColumns + `
		FROM recommendation_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1`

	rows, err := DB.Query(query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent snapshots")
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []types.RecommendationSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue // Skip this row and continue with others
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Debug().Int("count", len(snapshots)).Int("limit", limit).Msg("Retrieved recent snapshots")
	return snapshots, nil
}

// GetSnapshotByID retrieves a specific snapshot by its ID
func GetSnapshotByID(snapshotID int64) (*types.RecommendationSnapshot, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `SELECT ` + snapshotColumns + `
		FROM recommendation_snapshots
		WHERE snapshot_id = $1`

	snap, err := scanSnapshot(DB.QueryRow(query, snapshotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrSnapshotNotFound, snapshotID)
		}
		log.Error().Err(err).Int64("snapshot_id", snapshotID).Msg("Failed to query snapshot by ID")
		return nil, fmt.Errorf("failed to query snapshot by ID: %w", err)
	}
	return &snap, nil
}

// GetRecommendationStats retrieves aggregated statistics over all snapshots
func GetRecommendationStats() (*RecommendationStats, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
		SELECT
			COUNT(*) AS total_snapshots,
			COUNT(CASE WHEN status = 'ok' THEN 1 END) AS ok_snapshots,
			COUNT(CASE WHEN status = 'no_input' THEN 1 END) AS no_input_count,
			COUNT(CASE WHEN status = 'no_match' THEN 1 END) AS no_match_count,
			COUNT(DISTINCT wallet_address) AS distinct_wallets,
			COALESCE(SUM(total_value_usd), 0) AS total_value_usd,
			COALESCE(AVG(CASE WHEN status = 'ok' THEN weighted_apy END), 0) AS avg_weighted_apy,
			MAX(snapshot_timestamp) AS last_snapshot_at
		FROM recommendation_snapshots
	`

	stats := &RecommendationStats{}
	var last sql.NullTime
	err := DB.QueryRow(query).Scan(
		&stats.TotalSnapshots,
		&stats.OKSnapshots,
		&stats.NoInputCount,
		&stats.NoMatchCount,
		&stats.DistinctWallets,
		&stats.TotalValueUSD,
		&stats.AvgWeightedAPY,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation stats: %w", err)
	}
	if last.Valid {
		stats.LastSnapshotAt = last.Time
	}

	log.Debug().
		Int("totalSnapshots", stats.TotalSnapshots).
		Float64("avgWeightedAPY", stats.AvgWeightedAPY).
		Msg("Retrieved recommendation stats")

	return stats, nil
}

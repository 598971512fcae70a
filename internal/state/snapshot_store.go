// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/yield-navigator/pyn/internal/types"
)

// SaveRecommendationSnapshot saves one computed recommendation set to the database.
func SaveRecommendationSnapshot(snapshot types.RecommendationSnapshot) (int64, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	recommendationsJSON, err := json.Marshal(snapshot.Recommendations)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	summaryJSON, err := json.Marshal(snapshot.Summary)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal summary: %w", err)
	}

	poolAddresses := make([]string, 0, len(snapshot.Recommendations))
	for _, r := range snapshot.Recommendations {
		poolAddresses = append(poolAddresses, r.Pool.Address)
	}

	query := `
		INSERT INTO recommendation_snapshots (
			request_id, snapshot_timestamp, wallet_address, posture, status, scoring_params_id,
			asset_count, pool_count, total_value_usd, weighted_apy,
			pool_addresses, recommendations, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.RequestID, snapshot.Timestamp, nullableString(snapshot.WalletAddress),
		string(snapshot.Posture), string(snapshot.Status), snapshot.ScoringParamsID,
		snapshot.AssetCount, snapshot.PoolCount, snapshot.Summary.TotalValue, snapshot.Summary.WeightedAPY,
		pq.Array(poolAddresses), recommendationsJSON, summaryJSON,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save recommendation snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Str("request_id", snapshot.RequestID).
		Str("status", string(snapshot.Status)).
		Int("positions", len(snapshot.Recommendations)).
		Msg("Recommendation snapshot saved to database")

	return snapshotID, nil
}

// SnapshotFromSet builds the persisted record of a computed set.
func SnapshotFromSet(set types.RecommendationSet, wallet string, assetCount, poolCount int, paramsID *int64) types.RecommendationSnapshot {
	return types.RecommendationSnapshot{
		RequestID:       set.ID,
		Timestamp:       set.GeneratedAt,
		WalletAddress:   wallet,
		Posture:         set.Posture,
		Status:          set.Status,
		ScoringParamsID: paramsID,
		AssetCount:      assetCount,
		PoolCount:       poolCount,
		Recommendations: set.Recommendations,
		Summary:         set.Summary,
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

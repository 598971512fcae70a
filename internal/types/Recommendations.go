/*

This file contains the output types of the recommendation engine and the snapshot
record persisted for each computed set.

*/

package types

import "time"

// RecommendationStatus distinguishes a successful run from the two empty outcomes.
type RecommendationStatus string

const (
	StatusOK      RecommendationStatus = "ok"
	StatusNoInput RecommendationStatus = "no_input"
	StatusNoMatch RecommendationStatus = "no_match"
)

// Recommendation is one scored (asset, pool) pairing.
type Recommendation struct {
	AssetKey         string     `json:"asset_key"`
	Pool             Pool       `json:"pool"`
	Allocation       Allocation `json:"allocation"`
	Score            float64    `json:"score"`
	RiskScore        float64    `json:"risk_score"`
	ExpectedAPY      float64    `json:"expected_apy"` // Fraction
	ExpectedReturn   float64    `json:"expected_return"`
	InvestmentAmount float64    `json:"investment_amount"`
	Risks            []string   `json:"risks"`
}

// PoolPicks holds the best candidate for each side of the market.
type PoolPicks struct {
	BestPT *Recommendation `json:"best_pt,omitempty"`
	BestYT *Recommendation `json:"best_yt,omitempty"`
}

// AssetRecommendation is the top pick for one holding plus the per-side picks.
type AssetRecommendation struct {
	Recommendation
	Asset          Asset     `json:"asset"`
	CandidateCount int       `json:"candidate_count"`
	Pools          PoolPicks `json:"pools"`
}

type RecommendationSummary struct {
	TotalPositions int     `json:"total_positions"`
	TotalValue     float64 `json:"total_value"`
	WeightedAPY    float64 `json:"weighted_apy"` // Fraction
}

type RecommendationSet struct {
	ID              string                `json:"id,omitempty"`
	Status          RecommendationStatus  `json:"status"`
	Posture         RiskPosture           `json:"posture"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Recommendations []AssetRecommendation `json:"recommendations"`
	Summary         RecommendationSummary `json:"summary"`
}

// RecommendationSnapshot is the persisted record of one computed set.
type RecommendationSnapshot struct {
	SnapshotID      int64                 `json:"snapshot_id"`
	RequestID       string                `json:"request_id"`
	Timestamp       time.Time             `json:"timestamp"`
	WalletAddress   string                `json:"wallet_address,omitempty"`
	Posture         RiskPosture           `json:"posture"`
	Status          RecommendationStatus  `json:"status"`
	ScoringParamsID *int64                `json:"scoring_params_id,omitempty"`
	AssetCount      int                   `json:"asset_count"`
	PoolCount       int                   `json:"pool_count"`
	Recommendations []AssetRecommendation `json:"recommendations"`
	Summary         RecommendationSummary `json:"summary"`
}

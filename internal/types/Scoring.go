/*

This file contains the types for scoring pools, and other configurable parameters for the navigator.

*/

package types

import (
	"fmt"
	"strings"
)

// RiskPosture selects how a holding is split between PT and YT.
type RiskPosture string

const (
	PostureConservative RiskPosture = "conservative"
	PostureNeutral      RiskPosture = "neutral"
	PostureAggressive   RiskPosture = "aggressive"
)

// ParseRiskPosture accepts the posture names case-insensitively, plus the
// pt / split / yt aliases used by the UI.
func ParseRiskPosture(s string) (RiskPosture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative", "pt":
		return PostureConservative, nil
	case "neutral", "split":
		return PostureNeutral, nil
	case "aggressive", "yt":
		return PostureAggressive, nil
	}
	return "", fmt.Errorf("unknown risk posture %q", s)
}

// TagThresholdScale selects how the strategy-tag cutoffs are compared.
type TagThresholdScale string

const (
	// TagScalePercent compares every cutoff in percentage points.
	TagScalePercent TagThresholdScale = "percent"
	// TagScaleFractionLegacy compares the discount in percent but the yield
	// spread and APY as raw fractions, which is how the first dashboard did it.
	TagScaleFractionLegacy TagThresholdScale = "fraction_legacy"
)

// Allocation is a PT/YT split in percent. PT + YT == 100.
type Allocation struct {
	PT float64 `json:"pt" yaml:"pt"`
	YT float64 `json:"yt" yaml:"yt"`
}

// ScoringParameters holds all tunable weights, coefficients, and thresholds
// used for tagging, allocation and scoring.
type ScoringParameters struct {
	// --- Allocation by posture ---
	ConservativeAllocation Allocation `json:"conservative_allocation" yaml:"conservative_allocation"` // Default 100/0
	NeutralAllocation      Allocation `json:"neutral_allocation" yaml:"neutral_allocation"`           // Default 80/20
	AggressiveAllocation   Allocation `json:"aggressive_allocation" yaml:"aggressive_allocation"`     // Default 0/100

	// --- Risk constants (0-1) ---
	PTRiskConstant float64 `json:"pt_risk_constant" yaml:"pt_risk_constant"` // Risk of holding PT only
	YTRiskConstant float64 `json:"yt_risk_constant" yaml:"yt_risk_constant"` // Risk of holding YT only

	// --- Opportunity score components ---
	BaseScore          float64 `json:"base_score" yaml:"base_score"`                   // Score before components are added
	YieldWeight        float64 `json:"yield_weight" yaml:"yield_weight"`               // Points awarded at YieldCap effective APY
	YieldCap           float64 `json:"yield_cap" yaml:"yield_cap"`                     // Effective APY (fraction) that earns the full yield weight
	LiquidityWeight    float64 `json:"liquidity_weight" yaml:"liquidity_weight"`       // Points awarded at MaxTVLThreshold
	RiskWeight         float64 `json:"risk_weight" yaml:"risk_weight"`                 // Points removed at risk 1.0
	MinTVLThreshold    float64 `json:"min_tvl_threshold" yaml:"min_tvl_threshold"`     // TVL (USD) below which liquidity earns nothing
	MaxTVLThreshold    float64 `json:"max_tvl_threshold" yaml:"max_tvl_threshold"`     // TVL (USD) at which liquidity is saturated
	ShortMaturityDays  int     `json:"short_maturity_days" yaml:"short_maturity_days"` // Below this the recommendation carries a warning
	DefaultAPY         float64 `json:"default_apy" yaml:"default_apy"`                 // Fallback APY (fraction) when the feed has none
	ImpliedYieldMarkup float64 `json:"implied_yield_markup" yaml:"implied_yield_markup"`

	// --- Strategy tag thresholds ---
	TagScale             TagThresholdScale `json:"tag_threshold_scale" yaml:"tag_threshold_scale"`
	BestPTMinDiscount    float64           `json:"best_pt_min_discount" yaml:"best_pt_min_discount"`         // percent
	BestPTMinYieldSpread float64           `json:"best_pt_min_yield_spread" yaml:"best_pt_min_yield_spread"` // percentage points
	BestYTMinAPY         float64           `json:"best_yt_min_apy" yaml:"best_yt_min_apy"`                   // percent
	BestYTMaxDiscount    float64           `json:"best_yt_max_discount" yaml:"best_yt_max_discount"`         // percent
	BestYTMinDays        int               `json:"best_yt_min_days" yaml:"best_yt_min_days"`                 // days
	RiskyMinAPY          float64           `json:"risky_min_apy" yaml:"risky_min_apy"`                       // percent
	RiskyMinDiscount     float64           `json:"risky_min_discount" yaml:"risky_min_discount"`             // percent

	// --- Matching ---
	FuzzyMatching bool `json:"fuzzy_matching" yaml:"fuzzy_matching"` // Allow substring symbol matches
}

// AllocationFor returns the configured split for a posture.
func (p ScoringParameters) AllocationFor(posture RiskPosture) (Allocation, error) {
	switch posture {
	case PostureConservative:
		return p.ConservativeAllocation, nil
	case PostureNeutral:
		return p.NeutralAllocation, nil
	case PostureAggressive:
		return p.AggressiveAllocation, nil
	}
	return Allocation{}, fmt.Errorf("unknown risk posture %q", posture)
}

type ScoreResult struct {
	PoolAddress    string      `json:"pool_address"`
	Posture        RiskPosture `json:"posture"`
	Allocation     Allocation  `json:"allocation"`
	Score          float64     `json:"score"`      // 0-100, higher is a better opportunity
	RiskScore      float64     `json:"risk_score"` // 0-100, higher is riskier
	ExpectedReturn float64     `json:"expected_return"`
	EffectiveAPY   float64     `json:"effective_apy"` // Fraction, 0 when the pool has matured
	Components     struct {
		PTReturn           float64 `json:"pt_return"`
		YTReturn           float64 `json:"yt_return"`
		YieldComponent     float64 `json:"yield_component"`
		LiquidityComponent float64 `json:"liquidity_component"`
		RiskPenalty        float64 `json:"risk_penalty"`
	} `json:"components"`
}

/*

This file contains the default parameters for the navigator.

The defaults reproduce the allocations and tag cutoffs the dashboard has always shown users,
with the opportunity score tuned so that clamping at 0 or 100 only happens at the extremes.

*/

package config

import (
	"github.com/yield-navigator/pyn/internal/types"
)

// DefaultScoringParameters provides a baseline set of parameters for tagging and scoring.
// These values are used if no active parameters are found in the database or parameters file.
var DefaultScoringParameters = types.ScoringParameters{
	// --- Allocation by posture ---
	ConservativeAllocation: types.Allocation{PT: 100, YT: 0}, // Hold PT to maturity only.
	// Rationale: PT redeems 1:1 for the underlying at maturity, the discount is a fixed return.

	NeutralAllocation: types.Allocation{PT: 80, YT: 20}, // Mostly fixed yield with some upside.
	// Rationale: 20% YT keeps the blended risk score at 0.3, well under the YT-only level.

	AggressiveAllocation: types.Allocation{PT: 0, YT: 100}, // Full exposure to variable yield.

	// --- Risk constants ---
	PTRiskConstant: 0.2, // Smart contract and depeg risk of the underlying.
	YTRiskConstant: 0.7, // YT decays to zero at maturity and is priced off a volatile yield.

	// --- Opportunity score components ---
	BaseScore: 40.0,
	// Rationale: 40 + 40 (yield) + 20 (liquidity) - 6 (PT risk) = 94, so the best PT pools
	// stay under the 100 clamp and remain comparable with each other.

	YieldWeight: 40.0,
	YieldCap:    0.30, // 30% effective APY earns the full yield weight.
	// Rationale: above 30% the yield almost always reflects points programs or thin markets.

	LiquidityWeight: 20.0,
	MinTVLThreshold: 10_000,     // Below $10k the market cannot absorb a retail position.
	MaxTVLThreshold: 50_000_000, // $50M and above is treated as deep.

	RiskWeight: 30.0, // Risk 0.2 costs 6 points, risk 0.7 costs 21.

	ShortMaturityDays: 14, // Less than two weeks left, entry fees eat most of the return.

	DefaultAPY:         0.10, // Used when the feed reports neither aggregated nor underlying APY.
	ImpliedYieldMarkup: 1.05, // Implied yield estimate when the feed omits it: apy * 1.05.

	// --- Strategy tag thresholds ---
	TagScale:             types.TagScalePercent,
	BestPTMinDiscount:    3,  // PT trades more than 3% under par...
	BestPTMinYieldSpread: 1,  // ...and the market implies at least 1 point more than the pool pays.
	BestYTMinAPY:         20, // Underlying pays over 20%...
	BestYTMaxDiscount:    2,  // ...PT is priced near par so YT is cheap...
	BestYTMinDays:        60, // ...and there is enough time left to collect the yield.
	RiskyMinAPY:          30,
	RiskyMinDiscount:     10,

	// --- Matching ---
	FuzzyMatching: true, // "USDC" matches "sUSDC" and "USDC.e".
}

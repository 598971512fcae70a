/*

This file contains the functions for picking the best pool per asset and ranking the per-asset picks.

*/

package analyzer

import (
	"errors"
	"sort"
	"strings"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
)

var poolSelectorLogger = logger.GetForComponent("pool_selector")
var ErrNoCandidates = errors.New("no candidate recommendations to select from")

// better reports whether a outranks b: higher score, then deeper liquidity, then address order
// so the result does not depend on feed ordering.
func better(a, b types.Recommendation) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Pool.TVL != b.Pool.TVL {
		return a.Pool.TVL > b.Pool.TVL
	}
	return strings.ToLower(a.Pool.Address) < strings.ToLower(b.Pool.Address)
}

// SelectBestPool returns the highest-ranked candidate.
func SelectBestPool(candidates []types.Recommendation) (types.Recommendation, error) {
	if len(candidates) == 0 {
		return types.Recommendation{}, ErrNoCandidates
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}

	poolSelectorLogger.Debug().
		Str("assetKey", best.AssetKey).
		Str("pool", best.Pool.Address).
		Float64("score", best.Score).
		Int("candidates", len(candidates)).
		Msg("Selected best pool")

	return best, nil
}

// RankRecommendations sorts per-asset picks by descending score. Equal scores keep input order.
func RankRecommendations(recs []types.AssetRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
}

// Summarize computes the portfolio-level numbers over the ranked picks.
// WeightedAPY is the investment-weighted expected APY, 0 when nothing is invested.
func Summarize(recs []types.AssetRecommendation) types.RecommendationSummary {
	summary := types.RecommendationSummary{TotalPositions: len(recs)}

	var weighted float64
	for _, r := range recs {
		summary.TotalValue += r.Asset.ValueUSD
		weighted += r.ExpectedAPY * r.InvestmentAmount
	}
	if summary.TotalValue > 0 {
		summary.WeightedAPY = weighted / summary.TotalValue
	}
	return summary
}

/*

This file contains the aggregator that turns a portfolio and a pool list into a ranked
recommendation set.

For every holding with a positive USD value, each matched pool is scored three times: under the
requested posture (the top pick), fully in PT (best PT), and fully in YT (best YT).

*/

package analyzer

import (
	"errors"
	"fmt"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var recommendLogger = logger.GetForComponent("recommender")

// ErrNoInput means the caller supplied no assets or no pools.
var ErrNoInput = errors.New("no assets or pools provided")

// ErrNoMatchingPools means no valued asset matched any pool.
var ErrNoMatchingPools = errors.New("no matching pools found")

// GetRecommendationsForPortfolio scores every (asset, pool) pairing under posture and ranks the
// best pick per asset. The two empty outcomes return ErrNoInput / ErrNoMatchingPools together
// with a set carrying the matching status and an empty recommendation list.
func GetRecommendationsForPortfolio(assets []types.Asset, pools []types.Pool, posture types.RiskPosture, params types.ScoringParameters) (types.RecommendationSet, error) {
	return GetRecommendationsWithAllocation(assets, pools, posture, params, nil)
}

// GetRecommendationsWithAllocation is GetRecommendationsForPortfolio with a caller-supplied
// PT/YT split replacing the posture default for the top pick.
func GetRecommendationsWithAllocation(assets []types.Asset, pools []types.Pool, posture types.RiskPosture, params types.ScoringParameters, override *types.Allocation) (types.RecommendationSet, error) {
	set := types.RecommendationSet{
		Status:          types.StatusOK,
		Posture:         posture,
		Recommendations: []types.AssetRecommendation{},
	}

	if len(assets) == 0 || len(pools) == 0 {
		recommendLogger.Info().
			Int("assets", len(assets)).
			Int("pools", len(pools)).
			Msg("Nothing to recommend: empty input")
		set.Status = types.StatusNoInput
		return set, ErrNoInput
	}

	if _, err := AllocationForPosture(posture, params, override); err != nil {
		return set, err
	}

	valued := make([]types.Asset, 0, len(assets))
	for _, a := range assets {
		if utils.IsFinite(a.ValueUSD) && a.ValueUSD > 0 {
			valued = append(valued, a)
		}
	}

	matcher := NewMatcher(params)

	for _, asset := range valued {
		candidates := matcher.MatchPools(asset, pools)
		if len(candidates) == 0 {
			continue
		}
		key := AssetKey(asset)

		rec, err := recommendForAsset(asset, key, candidates, posture, params, override)
		if err != nil {
			return set, fmt.Errorf("asset %s: %w", key, err)
		}
		set.Recommendations = append(set.Recommendations, rec)
	}

	if len(set.Recommendations) == 0 {
		recommendLogger.Info().
			Int("assets", len(assets)).
			Int("valuedAssets", len(valued)).
			Int("pools", len(pools)).
			Msg("No asset matched any pool")
		set.Status = types.StatusNoMatch
		return set, ErrNoMatchingPools
	}

	RankRecommendations(set.Recommendations)
	set.Summary = Summarize(set.Recommendations)

	recommendLogger.Info().
		Str("posture", string(posture)).
		Int("positions", set.Summary.TotalPositions).
		Float64("totalValue", set.Summary.TotalValue).
		Float64("weightedAPY", set.Summary.WeightedAPY).
		Msg("Recommendations built")

	return set, nil
}

func recommendForAsset(asset types.Asset, key string, candidates []types.Pool, posture types.RiskPosture, params types.ScoringParameters, override *types.Allocation) (types.AssetRecommendation, error) {
	top, err := scoreCandidates(asset, key, candidates, posture, params, override)
	if err != nil {
		return types.AssetRecommendation{}, err
	}
	best, err := SelectBestPool(top)
	if err != nil {
		return types.AssetRecommendation{}, err
	}

	bestPT, err := bestUnder(asset, key, candidates, types.PostureConservative, params)
	if err != nil {
		return types.AssetRecommendation{}, err
	}
	bestYT, err := bestUnder(asset, key, candidates, types.PostureAggressive, params)
	if err != nil {
		return types.AssetRecommendation{}, err
	}

	return types.AssetRecommendation{
		Recommendation: best,
		Asset:          asset,
		CandidateCount: len(candidates),
		Pools: types.PoolPicks{
			BestPT: &bestPT,
			BestYT: &bestYT,
		},
	}, nil
}

func bestUnder(asset types.Asset, key string, candidates []types.Pool, posture types.RiskPosture, params types.ScoringParameters) (types.Recommendation, error) {
	recs, err := scoreCandidates(asset, key, candidates, posture, params, nil)
	if err != nil {
		return types.Recommendation{}, err
	}
	return SelectBestPool(recs)
}

func scoreCandidates(asset types.Asset, key string, candidates []types.Pool, posture types.RiskPosture, params types.ScoringParameters, override *types.Allocation) ([]types.Recommendation, error) {
	recs := make([]types.Recommendation, 0, len(candidates))
	for _, pool := range candidates {
		result, err := CalculatePoolScore(pool, posture, asset.ValueUSD, params, override)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool.Address, err)
		}
		recs = append(recs, types.Recommendation{
			AssetKey:         key,
			Pool:             pool,
			Allocation:       result.Allocation,
			Score:            result.Score,
			RiskScore:        result.RiskScore,
			ExpectedAPY:      result.EffectiveAPY,
			ExpectedReturn:   result.ExpectedReturn,
			InvestmentAmount: asset.ValueUSD,
			Risks:            CollectRisks(pool, result.Allocation, params),
		})
	}
	return recs, nil
}

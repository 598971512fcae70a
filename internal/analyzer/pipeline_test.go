package analyzer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/datafetcher"
	"github.com/yield-navigator/pyn/internal/types"
)

// A single USDC holding routed through the feed transformer and the recommender.
func TestMarketsToRecommendations(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := []types.RawMarket{
		{
			Address:         "0xPOOL",
			Expiry:          now.Add(180 * 24 * time.Hour).Format(time.RFC3339),
			Name:            "PT-USDC-30JUN2026",
			UnderlyingAsset: "8453-0xUSDC",
			Details:         &types.MarketDetails{AggregatedApy: 0.12, TotalTvl: 5_000_000},
		},
		{
			Address:         "0xOTHER",
			Expiry:          now.Add(90 * 24 * time.Hour).Format(time.RFC3339),
			Name:            "PT-WETH-1APR2026",
			UnderlyingAsset: "8453-0xWETH",
		},
	}
	params := config.DefaultScoringParameters
	pools := datafetcher.TransformMarkets(raw, nil, now, params)
	require.Len(t, pools, 2)

	assets := []types.Asset{{
		Token:    types.Token{Symbol: "USDC", Address: "0xusdc", Decimals: 6, ChainID: 8453, PriceUSD: 1},
		Balance:  10_000,
		ValueUSD: 10_000,
	}}

	set, err := analyzer.GetRecommendationsForPortfolio(assets, pools, types.PostureConservative, params)
	require.NoError(t, err)
	require.Len(t, set.Recommendations, 1)

	rec := set.Recommendations[0]
	assert.Equal(t, "0xPOOL", rec.Pool.Address)
	assert.Equal(t, 1, rec.CandidateCount)
	assert.InDelta(t, 0.126*180/365*10_000, rec.ExpectedReturn, 1e-6)
	assert.InDelta(t, 0.126, rec.ExpectedAPY, 1e-9)
	assert.InDelta(t, 20.0, rec.RiskScore, 1e-9)
	assert.Greater(t, rec.Score, 0.0)
	assert.LessOrEqual(t, rec.Score, 100.0)
	assert.InDelta(t, 0.126, set.Summary.WeightedAPY, 1e-9)
}

/*
This file contains the JSON views returned by the API. Yields are stored as fractions
everywhere else; the views are the only place they are turned into percentages
(apy, impliedYield, expectedAPY, weightedAPY).
*/

package web

import (
	"time"

	"github.com/yield-navigator/pyn/internal/types"
)

const percent = 100

type tokenView struct {
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	Decimals int     `json:"decimals"`
	ChainID  int     `json:"chainId"`
	PriceUSD float64 `json:"priceUSD,omitempty"`
}

type poolView struct {
	Address         string            `json:"address"`
	Name            string            `json:"name"`
	UnderlyingAsset tokenView         `json:"underlyingAsset"`
	Maturity        *time.Time        `json:"maturity,omitempty"`
	DaysToMaturity  int               `json:"daysToMaturity"`
	TVL             float64           `json:"tvl"`
	APY             float64           `json:"apy"`          // percent
	ImpliedYield    float64           `json:"impliedYield"` // percent
	PTPrice         float64           `json:"ptPrice"`
	YTPrice         float64           `json:"ytPrice"`
	PTDiscount      float64           `json:"ptDiscount"`
	StrategyTag     types.StrategyTag `json:"strategyTag"`
	APYDefaulted    bool              `json:"apyDefaulted,omitempty"`
	PriceDefaulted  bool              `json:"priceDefaulted,omitempty"`
}

type recommendationView struct {
	AssetKey         string           `json:"assetKey"`
	Pool             poolView         `json:"pool"`
	Allocation       types.Allocation `json:"allocation"`
	Score            float64          `json:"score"`
	RiskScore        float64          `json:"riskScore"`
	ExpectedAPY      float64          `json:"expectedAPY"` // percent
	ExpectedReturn   float64          `json:"expectedReturn"`
	InvestmentAmount float64          `json:"investmentAmount"`
	Risks            []string         `json:"risks"`
}

type poolPicksView struct {
	BestPT *recommendationView `json:"bestPT,omitempty"`
	BestYT *recommendationView `json:"bestYT,omitempty"`
}

type assetView struct {
	Token    tokenView `json:"token"`
	Balance  float64   `json:"balance"`
	ValueUSD float64   `json:"valueUSD"`
}

type assetRecommendationView struct {
	recommendationView
	Asset          assetView     `json:"asset"`
	CandidateCount int           `json:"candidateCount"`
	Pools          poolPicksView `json:"pools"`
}

type summaryView struct {
	TotalPositions int     `json:"totalPositions"`
	TotalValue     float64 `json:"totalValue"`
	WeightedAPY    float64 `json:"weightedAPY"` // percent
}

type recommendationSetView struct {
	ID              string                     `json:"id"`
	Status          types.RecommendationStatus `json:"status"`
	Posture         types.RiskPosture          `json:"posture"`
	GeneratedAt     time.Time                  `json:"generatedAt"`
	Recommendations []assetRecommendationView  `json:"recommendations"`
	Summary         summaryView                `json:"summary"`
}

type snapshotView struct {
	SnapshotID      int64                      `json:"snapshotId"`
	RequestID       string                     `json:"requestId"`
	Timestamp       time.Time                  `json:"timestamp"`
	WalletAddress   string                     `json:"walletAddress,omitempty"`
	Posture         types.RiskPosture          `json:"posture"`
	Status          types.RecommendationStatus `json:"status"`
	ScoringParamsID *int64                     `json:"scoringParamsId,omitempty"`
	AssetCount      int                        `json:"assetCount"`
	PoolCount       int                        `json:"poolCount"`
	Recommendations []assetRecommendationView  `json:"recommendations"`
	Summary         summaryView                `json:"summary"`
}

func newTokenView(t types.Token) tokenView {
	return tokenView{
		Address:  t.Address,
		Symbol:   t.Symbol,
		Decimals: t.Decimals,
		ChainID:  t.ChainID,
		PriceUSD: t.PriceUSD,
	}
}

func newPoolView(p types.Pool) poolView {
	v := poolView{
		Address:         p.Address,
		Name:            p.Name,
		UnderlyingAsset: newTokenView(p.UnderlyingAsset),
		DaysToMaturity:  p.DaysToMaturity,
		TVL:             p.TVL,
		APY:             p.APY * percent,
		ImpliedYield:    p.ImpliedYield * percent,
		PTPrice:         p.PTPrice,
		YTPrice:         p.YTPrice,
		PTDiscount:      p.PTDiscount,
		StrategyTag:     p.StrategyTag,
		APYDefaulted:    p.APYDefaulted,
		PriceDefaulted:  p.PriceDefaulted,
	}
	if p.Maturity > 0 {
		m := time.Unix(p.Maturity, 0).UTC()
		v.Maturity = &m
	}
	return v
}

func newPoolViews(pools []types.Pool) []poolView {
	views := make([]poolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, newPoolView(p))
	}
	return views
}

func newRecommendationView(r types.Recommendation) recommendationView {
	risks := r.Risks
	if risks == nil {
		risks = []string{}
	}
	return recommendationView{
		AssetKey:         r.AssetKey,
		Pool:             newPoolView(r.Pool),
		Allocation:       r.Allocation,
		Score:            r.Score,
		RiskScore:        r.RiskScore,
		ExpectedAPY:      r.ExpectedAPY * percent,
		ExpectedReturn:   r.ExpectedReturn,
		InvestmentAmount: r.InvestmentAmount,
		Risks:            risks,
	}
}

func newPickView(r *types.Recommendation) *recommendationView {
	if r == nil {
		return nil
	}
	v := newRecommendationView(*r)
	return &v
}

func newAssetRecommendationViews(recs []types.AssetRecommendation) []assetRecommendationView {
	views := make([]assetRecommendationView, 0, len(recs))
	for _, r := range recs {
		views = append(views, assetRecommendationView{
			recommendationView: newRecommendationView(r.Recommendation),
			Asset: assetView{
				Token:    newTokenView(r.Asset.Token),
				Balance:  r.Asset.Balance,
				ValueUSD: r.Asset.ValueUSD,
			},
			CandidateCount: r.CandidateCount,
			Pools: poolPicksView{
				BestPT: newPickView(r.Pools.BestPT),
				BestYT: newPickView(r.Pools.BestYT),
			},
		})
	}
	return views
}

func newSummaryView(s types.RecommendationSummary) summaryView {
	return summaryView{
		TotalPositions: s.TotalPositions,
		TotalValue:     s.TotalValue,
		WeightedAPY:    s.WeightedAPY * percent,
	}
}

func newRecommendationSetView(set types.RecommendationSet) recommendationSetView {
	return recommendationSetView{
		ID:              set.ID,
		Status:          set.Status,
		Posture:         set.Posture,
		GeneratedAt:     set.GeneratedAt,
		Recommendations: newAssetRecommendationViews(set.Recommendations),
		Summary:         newSummaryView(set.Summary),
	}
}

func newSnapshotView(s types.RecommendationSnapshot) snapshotView {
	return snapshotView{
		SnapshotID:      s.SnapshotID,
		RequestID:       s.RequestID,
		Timestamp:       s.Timestamp,
		WalletAddress:   s.WalletAddress,
		Posture:         s.Posture,
		Status:          s.Status,
		ScoringParamsID: s.ScoringParamsID,
		AssetCount:      s.AssetCount,
		PoolCount:       s.PoolCount,
		Recommendations: newAssetRecommendationViews(s.Recommendations),
		Summary:         newSummaryView(s.Summary),
	}
}

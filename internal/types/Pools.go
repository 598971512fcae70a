/*

This is a custom type for PT/YT markets which contains all the state needed for scoring pools.
All yields, discounts and prices are stored as fractions (0.158 == 15.8%).

*/

package types

// StrategyTag labels a pool with the side of the market that looks most attractive.
type StrategyTag string

const (
	StrategyBestPT  StrategyTag = "Best PT"
	StrategyBestYT  StrategyTag = "Best YT"
	StrategyRisky   StrategyTag = "Risky"
	StrategyNeutral StrategyTag = "Neutral"
)

type Pool struct {
	Address         string      `json:"address"`          // Market address, chain prefix stripped
	Name            string      `json:"name"`             // e.g., "PT-USDC-26DEC2026"
	UnderlyingAsset Token       `json:"underlying_asset"` // Token the PT/YT pair is written on
	Maturity        int64       `json:"maturity"`         // Unix seconds, 0 if the expiry was unparsable
	DaysToMaturity  int         `json:"days_to_maturity"` // 0 once matured
	TVL             float64     `json:"tvl"`              // USD
	APY             float64     `json:"apy"`              // Fraction
	ImpliedYield    float64     `json:"implied_yield"`    // Fraction
	PTPrice         float64     `json:"pt_price"`         // [0.5, 1] when estimated from implied yield
	YTPrice         float64     `json:"yt_price"`         // [0, 0.5] when estimated from implied yield
	PTDiscount      float64     `json:"pt_discount"`      // 1 - PTPrice
	StrategyTag     StrategyTag `json:"strategy_tag"`

	// Data quality flags, set when the feed omitted a value and a fallback was used
	APYDefaulted   bool `json:"apy_defaulted,omitempty"`
	PriceDefaulted bool `json:"price_defaulted,omitempty"`
}

// IsMatured reports whether the pool has no time left to maturity.
func (p Pool) IsMatured() bool {
	return p.DaysToMaturity <= 0
}

// MarketDetails is the nested yield/liquidity block of a raw market record.
// Every value is optional; the feed reports yields as fractions.
type MarketDetails struct {
	UnderlyingApy float64 `json:"underlyingApy"`
	ImpliedApy    float64 `json:"impliedApy"`
	AggregatedApy float64 `json:"aggregatedApy"`
	TotalTvl      float64 `json:"totalTvl"`
	Liquidity     float64 `json:"liquidity"`
}

// IsEmpty reports whether no field of the details block carries a value.
func (d *MarketDetails) IsEmpty() bool {
	return d == nil || (d.UnderlyingApy == 0 && d.ImpliedApy == 0 && d.AggregatedApy == 0 && d.TotalTvl == 0 && d.Liquidity == 0)
}

// RawMarket is a market record as returned by the upstream market-data feed.
type RawMarket struct {
	Address         string         `json:"address"`
	Expiry          string         `json:"expiry"`                    // ISO-8601
	UnderlyingAsset string         `json:"underlyingAsset,omitempty"` // optionally "{chainId}-{address}"
	Name            string         `json:"name,omitempty"`
	Details         *MarketDetails `json:"details,omitempty"`
}

// PoolDetailRecord is supplementary per-market data used to backfill missing details.
type PoolDetailRecord struct {
	Address string         `json:"address"`
	Details *MarketDetails `json:"details,omitempty"`
	TVL     float64        `json:"tvl,omitempty"`
}

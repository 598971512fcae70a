/*

This file contains the types for user holdings. Holdings are rebuilt from a portfolio
snapshot on every request and never persisted by the scoring core.

*/

package types

// Asset is a user holding already denominated in USD.
type Asset struct {
	Token    Token   `json:"token"`
	Balance  float64 `json:"balance"`  // Human-readable quantity (decimals applied)
	ValueUSD float64 `json:"valueUSD"` // Balance * PriceUSD
}

// RawHolding is a holding as reported by a portfolio aggregator. Aggregators disagree on
// shape: some send a balance already scaled, some send the raw integer amount plus decimals,
// some only a symbol. HoldingsToAssets folds all of them into Asset.
type RawHolding struct {
	Address    string  `json:"contractAddress,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	ChainID    int     `json:"chainId,omitempty"`
	Decimals   *int    `json:"decimals,omitempty"` // nil when the aggregator omits it
	Balance    float64 `json:"balance,omitempty"`
	RawBalance string  `json:"rawBalance,omitempty"` // Integer amount in base units
	Price      float64 `json:"price,omitempty"`
	Value      float64 `json:"value,omitempty"`
}

/*

This is the canonical token type shared by pools and user holdings.

*/

package types

type Token struct {
	Address  string  `json:"address"`            // e.g., "0xaf88d065e77c8cc2239327c5edb3a432268e5831" (lowercase, no chain prefix)
	Symbol   string  `json:"symbol"`             // e.g., "USDC"
	Decimals int     `json:"decimals"`           // e.g., 6
	ChainID  int     `json:"chainId"`            // e.g., 42161
	PriceUSD float64 `json:"priceUSD,omitempty"` // optional, 0 when unknown
}

// DefaultTokenDecimals is assumed for EVM tokens whose decimals the feed does not report.
const DefaultTokenDecimals = 18

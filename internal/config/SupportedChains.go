/*
Pendle markets are deployed on several EVM chains. The market feed prefixes token addresses
with the chain id ("8453-0x..."), which is how pools end up carrying a ChainID.

This file contains the chains the navigator will query. If a chain is missing here the
feed will still be parsed, but PENDLE_CHAIN_ID will refuse to select it.
*/

package config

// DefaultChainID is Arbitrum One, where most Pendle liquidity lives.
const DefaultChainID = 42161

var (
	SupportedChains = map[int]string{
		1:     "Ethereum",
		10:    "Optimism",
		56:    "BNB Chain",
		146:   "Sonic",
		5000:  "Mantle",
		8453:  "Base",
		42161: "Arbitrum",
		80094: "Berachain",
	}
)

// ChainName returns the display name of a chain, or "" when unknown.
func ChainName(chainID int) string {
	return SupportedChains[chainID]
}

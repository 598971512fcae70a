/*

This file contains the matcher that narrows the pool list down to the pools each holding can enter.

*/

package analyzer

import (
	"strings"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var matchLogger = logger.GetForComponent("asset_matcher")

// MatchReason records which rule paired an asset with a pool.
type MatchReason string

const (
	MatchSymbol  MatchReason = "symbol"
	MatchAddress MatchReason = "address"
	MatchFuzzy   MatchReason = "fuzzy"
)

// Matcher pairs holdings with pools. Fuzzy enables case-insensitive substring matching on
// symbols, which is permissive on purpose ("USD" matches both "sUSDe" and "USD0++").
type Matcher struct {
	Fuzzy bool
}

// NewMatcher returns a matcher configured from the scoring parameters.
func NewMatcher(params types.ScoringParameters) Matcher {
	return Matcher{Fuzzy: params.FuzzyMatching}
}

// AssetKey identifies a holding: its uppercased symbol, or its lowercased address when the
// symbol is empty. Returns "" when both are empty.
func AssetKey(asset types.Asset) string {
	if symbol := utils.NormalizeSymbol(asset.Token.Symbol); symbol != "" {
		return symbol
	}
	return strings.ToLower(strings.TrimSpace(utils.NormalizeAddress(asset.Token.Address)))
}

// Match reports whether asset can be routed into pool, and by which rule.
func (m Matcher) Match(asset types.Asset, pool types.Pool) (MatchReason, bool) {
	assetSymbol := utils.NormalizeSymbol(asset.Token.Symbol)
	poolSymbol := utils.NormalizeSymbol(pool.UnderlyingAsset.Symbol)

	if assetSymbol != "" && assetSymbol == poolSymbol {
		return MatchSymbol, true
	}
	if utils.AddressesEqual(asset.Token.Address, pool.UnderlyingAsset.Address) {
		return MatchAddress, true
	}
	if m.Fuzzy && assetSymbol != "" && poolSymbol != "" &&
		(strings.Contains(poolSymbol, assetSymbol) || strings.Contains(assetSymbol, poolSymbol)) {
		return MatchFuzzy, true
	}
	return "", false
}

// MatchPools returns the pools a single holding matched, in pool order. A holding with neither
// symbol nor address matches nothing.
func (m Matcher) MatchPools(asset types.Asset, pools []types.Pool) []types.Pool {
	key := AssetKey(asset)
	if key == "" {
		return nil
	}

	var candidates []types.Pool
	for _, pool := range pools {
		reason, ok := m.Match(asset, pool)
		if !ok {
			continue
		}
		matchLogger.Debug().
			Str("assetKey", key).
			Str("pool", pool.Address).
			Str("reason", string(reason)).
			Msg("Asset matched pool")
		candidates = append(candidates, pool)
	}
	return candidates
}

// FindMatchingPools maps each asset key to the pools the first holding with that key matched,
// in pool order. Assets with an empty key or without any match are left out of the result.
// Holdings sharing a symbol can match different pools by address; use MatchPools per holding
// when that matters.
func (m Matcher) FindMatchingPools(assets []types.Asset, pools []types.Pool) map[string][]types.Pool {
	matches := make(map[string][]types.Pool)

	for _, asset := range assets {
		key := AssetKey(asset)
		if key == "" {
			matchLogger.Debug().Msg("Skipping asset with neither symbol nor address")
			continue
		}
		if _, seen := matches[key]; seen {
			continue
		}

		if candidates := m.MatchPools(asset, pools); len(candidates) > 0 {
			matches[key] = candidates
		}
	}

	matchLogger.Debug().
		Int("assets", len(assets)).
		Int("pools", len(pools)).
		Int("matchedAssets", len(matches)).
		Bool("fuzzy", m.Fuzzy).
		Msg("Asset matching completed")

	return matches
}

// FindMatchingPools runs the default fuzzy matcher.
func FindMatchingPools(assets []types.Asset, pools []types.Pool) map[string][]types.Pool {
	return Matcher{Fuzzy: true}.FindMatchingPools(assets, pools)
}

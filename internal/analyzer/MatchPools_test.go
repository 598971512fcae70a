package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-navigator/pyn/internal/types"
)

func asset(symbol, address string, value float64) types.Asset {
	return types.Asset{Token: types.Token{Symbol: symbol, Address: address}, ValueUSD: value}
}

func poolOn(address, symbol, underlying string) types.Pool {
	p := samplePool()
	p.Address = address
	p.UnderlyingAsset = types.Token{Symbol: symbol, Address: underlying}
	return p
}

func TestMatchExactSymbolIgnoresAddress(t *testing.T) {
	exact := Matcher{}
	reason, ok := exact.Match(asset("usdc", "0x1111", 1), poolOn("0xp", "USDC", "0x2222"))
	assert.True(t, ok)
	assert.Equal(t, MatchSymbol, reason)
}

func TestMatchByAddress(t *testing.T) {
	exact := Matcher{}
	reason, ok := exact.Match(asset("", "42161-0xAbCd", 1), poolOn("0xp", "USDC", "0xabcd"))
	assert.True(t, ok)
	assert.Equal(t, MatchAddress, reason)

	_, ok = exact.Match(asset("DAI", "0x1", 1), poolOn("0xp", "USDC", "0x2"))
	assert.False(t, ok)
}

func TestMatchFuzzyOnlyWhenEnabled(t *testing.T) {
	holding := asset("USDC", "", 1)
	pool := poolOn("0xp", "sUSDC", "")

	_, ok := Matcher{}.Match(holding, pool)
	assert.False(t, ok)

	reason, ok := Matcher{Fuzzy: true}.Match(holding, pool)
	assert.True(t, ok)
	assert.Equal(t, MatchFuzzy, reason)

	// Containment works in both directions
	reason, ok = Matcher{Fuzzy: true}.Match(asset("USDC.e", "", 1), poolOn("0xp", "usdc", ""))
	assert.True(t, ok)
	assert.Equal(t, MatchFuzzy, reason)
}

func TestMatchEmptyFieldsNeverMatch(t *testing.T) {
	fuzzy := Matcher{Fuzzy: true}
	_, ok := fuzzy.Match(asset("", "", 1), poolOn("0xp", "", ""))
	assert.False(t, ok)

	_, ok = fuzzy.Match(asset("USDC", "", 1), poolOn("0xp", "", ""))
	assert.False(t, ok)

	_, ok = fuzzy.Match(asset("", "0xabc", 1), poolOn("0xp", "USDC", ""))
	assert.False(t, ok)
}

func TestAssetKey(t *testing.T) {
	assert.Equal(t, "USDC", AssetKey(asset(" usdc ", "0xABC", 1)))
	assert.Equal(t, "0xabc", AssetKey(asset("", "1-0xABC", 1)))
	assert.Equal(t, "", AssetKey(asset("", "", 1)))
}

func TestFindMatchingPools(t *testing.T) {
	pools := []types.Pool{
		poolOn("0xp1", "USDC", "0xusdc"),
		poolOn("0xp2", "sUSDe", "0xsusde"),
		poolOn("0xp3", "USDC", "0xusdc"),
		poolOn("0xp4", "WETH", "0xweth"),
	}
	assets := []types.Asset{
		asset("USDC", "", 100),
		asset("", "0xWETH", 50),
		asset("DAI", "", 10),
		asset("", "", 5),
		asset("usdc", "", 999),
	}

	matches := Matcher{}.FindMatchingPools(assets, pools)
	require.Len(t, matches, 2)

	require.Len(t, matches["USDC"], 2)
	assert.Equal(t, "0xp1", matches["USDC"][0].Address)
	assert.Equal(t, "0xp3", matches["USDC"][1].Address)

	require.Len(t, matches["0xweth"], 1)
	assert.Equal(t, "0xp4", matches["0xweth"][0].Address)

	_, ok := matches["DAI"]
	assert.False(t, ok)
}

func TestFindMatchingPoolsFuzzyDefault(t *testing.T) {
	pools := []types.Pool{poolOn("0xp1", "sUSDe", ""), poolOn("0xp2", "USD0++", "")}
	matches := FindMatchingPools([]types.Asset{asset("USD", "", 1)}, pools)
	assert.Len(t, matches["USD"], 2)

	assert.Empty(t, FindMatchingPools(nil, pools))
	assert.Empty(t, FindMatchingPools([]types.Asset{asset("USD", "", 1)}, nil))
}

func TestNewMatcherFollowsParameters(t *testing.T) {
	params := testParams()
	assert.True(t, NewMatcher(params).Fuzzy)
	params.FuzzyMatching = false
	assert.False(t, NewMatcher(params).Fuzzy)
}

func TestMatchPoolsPerHolding(t *testing.T) {
	pools := []types.Pool{poolOn("0xp1", "USDC", "0x1"), poolOn("0xp2", "FOO", "0xbbb")}
	m := Matcher{}

	got := m.MatchPools(asset("USDC", "0xbbb", 1), pools)
	require.Len(t, got, 2)
	assert.Equal(t, "0xp1", got[0].Address)
	assert.Equal(t, "0xp2", got[1].Address)

	got = m.MatchPools(asset("USDC", "0xaaa", 1), pools)
	require.Len(t, got, 1)
	assert.Equal(t, "0xp1", got[0].Address)

	assert.Empty(t, m.MatchPools(asset("", "", 1), pools))
}

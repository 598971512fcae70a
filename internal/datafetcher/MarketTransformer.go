/*
This file converts raw market records from the market-data feed into scored-ready pools.

The feed is known to be inconsistent: yields and TVL are often missing, PT/YT prices are never
supplied. Missing numbers are defaulted rather than rejected, and the defaults are flagged on
the pool so downstream code can warn about them. Only records without an address or expiry
are dropped.
*/

package datafetcher

import (
	"math"
	"strings"
	"time"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var transformLogger = logger.GetForComponent("pool_transformer")

const (
	secondsPerDay = 86400

	defaultPTPrice = 0.95
	defaultYTPrice = 0.05

	minEstimatedPTPrice = 0.5
	maxEstimatedYTPrice = 0.5
)

// Layouts accepted for the expiry field, most specific first.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TransformMarkets converts raw markets into pools, preserving order.
// details optionally backfills per-market yields and TVL the primary record lacks.
func TransformMarkets(raw []types.RawMarket, details []types.PoolDetailRecord, now time.Time, params types.ScoringParameters) []types.Pool {
	supplementary := make(map[string]types.PoolDetailRecord, len(details))
	for _, d := range details {
		key := strings.ToLower(utils.NormalizeAddress(strings.TrimSpace(d.Address)))
		if key == "" {
			continue
		}
		supplementary[key] = d
	}

	pools := make([]types.Pool, 0, len(raw))
	dropped := 0
	for _, market := range raw {
		pool, ok := TransformMarket(market, supplementary, now, params)
		if !ok {
			dropped++
			continue
		}
		pools = append(pools, pool)
	}

	transformLogger.Info().
		Int("rawMarkets", len(raw)).
		Int("supplementary", len(supplementary)).
		Int("pools", len(pools)).
		Int("dropped", dropped).
		Msg("Markets transformed")

	return pools
}

// TransformMarket converts a single record. Returns false when the address or expiry is missing.
func TransformMarket(market types.RawMarket, supplementary map[string]types.PoolDetailRecord, now time.Time, params types.ScoringParameters) (types.Pool, bool) {
	address := utils.NormalizeAddress(strings.TrimSpace(market.Address))
	expiry := strings.TrimSpace(market.Expiry)
	if address == "" || expiry == "" {
		transformLogger.Debug().
			Str("address", market.Address).
			Str("expiry", market.Expiry).
			Msg("Dropping market without address or expiry")
		return types.Pool{}, false
	}

	maturity := ParseMaturity(expiry)
	days := DaysToMaturity(maturity, now)

	var supp *types.PoolDetailRecord
	if d, ok := supplementary[strings.ToLower(address)]; ok {
		supp = &d
	}
	y := resolveYields(market.Details, supp)

	pool := types.Pool{
		Address:         address,
		Name:            market.Name,
		UnderlyingAsset: underlyingToken(market.UnderlyingAsset, market.Name),
		Maturity:        maturity,
		DaysToMaturity:  days,
		TVL:             y.tvl,
	}

	switch {
	case y.aggregated > 0:
		pool.APY = y.aggregated
	case y.underlying > 0:
		pool.APY = y.underlying
	default:
		pool.APY = params.DefaultAPY
		pool.APYDefaulted = true
	}

	if y.implied > 0 {
		pool.ImpliedYield = y.implied
	} else {
		pool.ImpliedYield = pool.APY * params.ImpliedYieldMarkup
	}

	pool.PTPrice, pool.YTPrice, pool.PriceDefaulted = EstimatePrices(pool.ImpliedYield, days)
	pool.PTDiscount = 1 - pool.PTPrice
	pool.StrategyTag = analyzer.AssignStrategyTag(pool.APY, pool.ImpliedYield, pool.PTDiscount, days, params)

	return pool, true
}

// ParseMaturity parses an ISO-8601 expiry into unix seconds, 0 when unparsable.
func ParseMaturity(expiry string) int64 {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, expiry); err == nil {
			return t.Unix()
		}
	}
	transformLogger.Warn().Str("expiry", expiry).Msg("Unparsable market expiry, treating as matured")
	return 0
}

// DaysToMaturity rounds the remaining time up to whole days, 0 once maturity has passed.
func DaysToMaturity(maturity int64, now time.Time) int {
	remaining := maturity - now.Unix()
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) / secondsPerDay))
}

// EstimatePrices derives PT and YT prices from the implied yield over the remaining term,
// since the feed does not report them. The bool is true when the fixed defaults were used.
func EstimatePrices(impliedYield float64, days int) (ptPrice, ytPrice float64, defaulted bool) {
	if impliedYield <= 0 || days <= 0 || !utils.IsFinite(impliedYield) {
		return defaultPTPrice, defaultYTPrice, true
	}
	timeFactor := float64(days) / 365
	ptPrice = utils.Clamp(1-impliedYield*timeFactor, minEstimatedPTPrice, 1)
	ytPrice = utils.Clamp(impliedYield*timeFactor, 0, maxEstimatedYTPrice)
	return ptPrice, ytPrice, false
}

// SymbolFromMarketName extracts the ticker from names following "PT-<SYMBOL>-<EXPIRY>".
// When the first segment is not "PT" it is taken as the symbol itself.
func SymbolFromMarketName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "-")
	if parts[0] == "PT" {
		if len(parts) > 1 {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func underlyingToken(underlying, name string) types.Token {
	underlying = strings.TrimSpace(underlying)
	token := types.Token{
		Address:  strings.ToLower(utils.NormalizeAddress(underlying)),
		Symbol:   SymbolFromMarketName(name),
		Decimals: types.DefaultTokenDecimals,
	}
	if chainID, ok := utils.ChainIDFromPrefixed(underlying); ok {
		token.ChainID = chainID
	}
	return token
}

type resolvedYields struct {
	underlying float64
	implied    float64
	aggregated float64
	tvl        float64
}

// resolveYields reads each value from the primary details first, then the supplementary record.
func resolveYields(primary *types.MarketDetails, supp *types.PoolDetailRecord) resolvedYields {
	var secondary *types.MarketDetails
	var suppTVL float64
	if supp != nil {
		secondary = supp.Details
		suppTVL = supp.TVL
	}

	pick := func(get func(*types.MarketDetails) float64) float64 {
		for _, d := range []*types.MarketDetails{primary, secondary} {
			if d == nil {
				continue
			}
			if v := get(d); v > 0 && utils.IsFinite(v) {
				return v
			}
		}
		return 0
	}

	y := resolvedYields{
		underlying: pick(func(d *types.MarketDetails) float64 { return d.UnderlyingApy }),
		implied:    pick(func(d *types.MarketDetails) float64 { return d.ImpliedApy }),
		aggregated: pick(func(d *types.MarketDetails) float64 { return d.AggregatedApy }),
	}

	y.tvl = pick(func(d *types.MarketDetails) float64 {
		if d.TotalTvl > 0 {
			return d.TotalTvl
		}
		return d.Liquidity
	})
	if y.tvl == 0 && suppTVL > 0 && utils.IsFinite(suppTVL) {
		y.tvl = suppTVL
	}
	return y
}

/*

This file contains the rule that labels a market with the side that currently looks attractive.

The four branches are checked in order and the first match wins:
  Best PT  - PT trades at a real discount and the market implies more yield than the pool pays
  Best YT  - high variable yield, PT near par, and enough time left to collect it
  Risky    - yield or discount so large that something is probably off
  Neutral  - everything else

*/

package analyzer

import (
	"github.com/yield-navigator/pyn/internal/types"
)

// TagInputs are the tag-relevant values of a pool expressed on the scale the thresholds use.
type TagInputs struct {
	DiscountPercent float64
	YieldSpread     float64
	APY             float64
	DaysToMaturity  int
}

// ScaleTagInputs converts fractional pool values to the comparison scale selected by params.
// The discount is always compared in percent. Under the legacy scale the yield spread and APY
// stay fractions, so the 1-point and 20/30% cutoffs are effectively unreachable.
func ScaleTagInputs(apy, impliedYield, ptDiscount float64, days int, scale types.TagThresholdScale) TagInputs {
	in := TagInputs{
		DiscountPercent: ptDiscount * 100,
		YieldSpread:     impliedYield - apy,
		APY:             apy,
		DaysToMaturity:  days,
	}
	if scale != types.TagScaleFractionLegacy {
		in.YieldSpread *= 100
		in.APY *= 100
	}
	return in
}

// AssignStrategyTag labels a pool from its fractional APY, implied yield and PT discount.
func AssignStrategyTag(apy, impliedYield, ptDiscount float64, days int, params types.ScoringParameters) types.StrategyTag {
	in := ScaleTagInputs(apy, impliedYield, ptDiscount, days, params.TagScale)

	switch {
	case in.DiscountPercent > params.BestPTMinDiscount && in.YieldSpread > params.BestPTMinYieldSpread:
		return types.StrategyBestPT
	case in.APY > params.BestYTMinAPY && in.DiscountPercent < params.BestYTMaxDiscount && in.DaysToMaturity > params.BestYTMinDays:
		return types.StrategyBestYT
	case in.APY > params.RiskyMinAPY || in.DiscountPercent > params.RiskyMinDiscount:
		return types.StrategyRisky
	default:
		return types.StrategyNeutral
	}
}

/*

This file contains the main function for scoring a pool under a risk posture.

A score combines three components on a 0-100 scale:
  yield      - effective APY of the recommended PT/YT split, saturating at YieldCap
  liquidity  - log10 of TVL between MinTVLThreshold and MaxTVLThreshold
  risk       - subtracted, linear in the YT share of the split

*/

package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var ErrInvalidPoolData = errors.New("invalid pool data")
var ErrInvalidScoringParameters = errors.New("invalid scoring parameters")
var ErrInvalidAllocation = errors.New("invalid allocation")
var ErrInvalidAmount = errors.New("invalid investment amount")
var scoreLogger = logger.GetForComponent("pool_scorer")

const daysPerYear = 365.0

// CalculatePoolScore scores a pool for one posture by orchestrating the component functions below.
// Inputs:
//   - pool: A transformed pool.
//   - posture: The risk posture selecting the default PT/YT split.
//   - amount: The USD amount to be invested.
//   - params: The scoring parameters defining allocations, weights and thresholds.
//   - override: Optional caller-supplied split replacing the posture default.
//
// Output:
//   - A ScoreResult containing the split, scores, expected return and component breakdown.
//   - An error if validation fails or any intermediate value is not finite.
func CalculatePoolScore(pool types.Pool, posture types.RiskPosture, amount float64, params types.ScoringParameters, override *types.Allocation) (types.ScoreResult, error) {
	if err := ValidatePoolData(pool); err != nil {
		scoreLogger.Error().
			Str("pool", pool.Address).
			Err(err).
			Msg("Pool data validation failed")
		return types.ScoreResult{}, errors.Join(ErrInvalidPoolData, err)
	}
	if err := ValidateScoringParameters(params); err != nil {
		return types.ScoreResult{}, errors.Join(ErrInvalidScoringParameters, err)
	}
	if !utils.IsFinite(amount) || amount < 0 {
		return types.ScoreResult{}, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	allocation, err := AllocationForPosture(posture, params, override)
	if err != nil {
		return types.ScoreResult{}, err
	}

	result := types.ScoreResult{
		PoolAddress: pool.Address,
		Posture:     posture,
		Allocation:  allocation,
	}

	ptReturn, ytReturn, expectedReturn, err := CalculateExpectedReturn(pool, allocation, amount)
	if err != nil {
		return types.ScoreResult{}, errors.Join(errors.New("expected return calculation failed"), err)
	}
	result.ExpectedReturn = expectedReturn
	result.Components.PTReturn = ptReturn
	result.Components.YTReturn = ytReturn

	effectiveAPY, err := CalculateEffectiveAPY(expectedReturn, amount, pool.DaysToMaturity)
	if err != nil {
		return types.ScoreResult{}, errors.Join(errors.New("effective APY calculation failed"), err)
	}
	result.EffectiveAPY = effectiveAPY

	riskScore, err := CalculateRiskScore(allocation, params)
	if err != nil {
		return types.ScoreResult{}, errors.Join(errors.New("risk score calculation failed"), err)
	}
	result.RiskScore = riskScore

	score, err := CalculateOpportunityScore(effectiveAPY, pool.TVL, riskScore, params)
	if err != nil {
		return types.ScoreResult{}, errors.Join(errors.New("opportunity score calculation failed"), err)
	}
	result.Score = score

	// Components are recomputed here only for the breakdown; the score call already validated them
	result.Components.YieldComponent, _ = CalculateYieldComponent(effectiveAPY, params)
	result.Components.LiquidityComponent, _ = CalculateLiquidityComponent(pool.TVL, params)
	result.Components.RiskPenalty, _ = CalculateRiskPenalty(riskScore, params)

	scoreLogger.Debug().
		Str("pool", pool.Address).
		Str("posture", string(posture)).
		Float64("pt", allocation.PT).
		Float64("yt", allocation.YT).
		Float64("expectedReturn", expectedReturn).
		Float64("effectiveAPY", effectiveAPY).
		Float64("riskScore", riskScore).
		Float64("score", score).
		Msg("Pool score calculated")

	return result, nil
}

// AllocationForPosture returns the PT/YT split for a posture, or the override when given.
func AllocationForPosture(posture types.RiskPosture, params types.ScoringParameters, override *types.Allocation) (types.Allocation, error) {
	allocation, err := params.AllocationFor(posture)
	if err != nil {
		return types.Allocation{}, errors.Join(ErrInvalidAllocation, err)
	}
	if override != nil {
		allocation = *override
	}
	if err := validateAllocation(allocation); err != nil {
		return types.Allocation{}, errors.Join(ErrInvalidAllocation, err)
	}
	return allocation, nil
}

// CalculateExpectedReturn computes the USD return of holding the split to maturity.
// PT captures the discount; YT collects the pool APY pro-rata over the remaining days.
func CalculateExpectedReturn(pool types.Pool, allocation types.Allocation, amount float64) (ptReturn, ytReturn, expected float64, err error) {
	ptReturn = pool.PTDiscount * amount
	ytReturn = pool.APY * (float64(pool.DaysToMaturity) / daysPerYear) * amount
	expected = (ptReturn*allocation.PT + ytReturn*allocation.YT) / 100

	for _, v := range []struct {
		value float64
		name  string
	}{
		{ptReturn, "PT return"},
		{ytReturn, "YT return"},
		{expected, "expected return"},
	} {
		if !utils.IsFinite(v.value) {
			return 0, 0, 0, errors.New(v.name + " calculation resulted in non-finite value")
		}
	}
	return ptReturn, ytReturn, expected, nil
}

// CalculateEffectiveAPY annualizes an expected return. Returns 0 for matured pools or a zero amount.
func CalculateEffectiveAPY(expectedReturn, amount float64, days int) (float64, error) {
	if days <= 0 || amount <= 0 {
		return 0, nil
	}
	effective := (expectedReturn / amount) * (daysPerYear / float64(days))
	if !utils.IsFinite(effective) {
		return 0, errors.New("effective APY calculation resulted in non-finite value")
	}
	return effective, nil
}

// CalculateRiskScore interpolates between the PT and YT risk constants by YT share, on 0-100.
func CalculateRiskScore(allocation types.Allocation, params types.ScoringParameters) (float64, error) {
	risk := params.PTRiskConstant + (params.YTRiskConstant-params.PTRiskConstant)*(allocation.YT/100)
	riskScore := risk * 100
	if !utils.IsFinite(riskScore) {
		return 0, errors.New("risk score calculation resulted in non-finite value")
	}
	return riskScore, nil
}

// CalculateYieldComponent awards up to YieldWeight points, linear in effective APY up to YieldCap.
func CalculateYieldComponent(effectiveAPY float64, params types.ScoringParameters) (float64, error) {
	if !utils.IsFinite(effectiveAPY) {
		return 0, errors.New("effective APY is not finite")
	}
	ratio := utils.Clamp(effectiveAPY/params.YieldCap, 0, 1)
	return ratio * params.YieldWeight, nil
}

// CalculateLiquidityComponent awards up to LiquidityWeight points on a log10 TVL scale.
func CalculateLiquidityComponent(tvl float64, params types.ScoringParameters) (float64, error) {
	if !utils.IsFinite(tvl) {
		return 0, errors.New("pool TVL is not finite")
	}
	if tvl <= params.MinTVLThreshold {
		return 0, nil
	}
	if tvl >= params.MaxTVLThreshold {
		return params.LiquidityWeight, nil
	}

	logMin := math.Log10(params.MinTVLThreshold)
	logMax := math.Log10(params.MaxTVLThreshold)
	ratio := (math.Log10(tvl) - logMin) / (logMax - logMin)
	component := ratio * params.LiquidityWeight
	if !utils.IsFinite(component) {
		return 0, errors.New("liquidity component calculation resulted in non-finite value")
	}
	return component, nil
}

// CalculateRiskPenalty removes up to RiskWeight points, linear in the 0-100 risk score.
func CalculateRiskPenalty(riskScore float64, params types.ScoringParameters) (float64, error) {
	if !utils.IsFinite(riskScore) {
		return 0, errors.New("risk score is not finite")
	}
	return (riskScore / 100) * params.RiskWeight, nil
}

// CalculateOpportunityScore combines the components into a 0-100 score. Non-decreasing in
// effective APY and TVL, non-increasing in risk.
func CalculateOpportunityScore(effectiveAPY, tvl, riskScore float64, params types.ScoringParameters) (float64, error) {
	yieldComponent, err := CalculateYieldComponent(effectiveAPY, params)
	if err != nil {
		return 0, err
	}
	liquidityComponent, err := CalculateLiquidityComponent(tvl, params)
	if err != nil {
		return 0, err
	}
	riskPenalty, err := CalculateRiskPenalty(riskScore, params)
	if err != nil {
		return 0, err
	}

	score := params.BaseScore + yieldComponent + liquidityComponent - riskPenalty
	if !utils.IsFinite(score) {
		return 0, errors.New("final score calculation resulted in NaN or Inf")
	}
	return utils.Clamp(score, 0, 100), nil
}

// CollectRisks lists the caveats a user should read before following a recommendation.
func CollectRisks(pool types.Pool, allocation types.Allocation, params types.ScoringParameters) []string {
	risks := make([]string, 0, 4)

	if pool.IsMatured() {
		risks = append(risks, "Pool has matured: PT redeems at par and YT earns nothing further")
	} else if pool.DaysToMaturity < params.ShortMaturityDays {
		risks = append(risks, fmt.Sprintf("Matures in %d days: entry costs may outweigh the return", pool.DaysToMaturity))
	}
	if pool.TVL < params.MinTVLThreshold {
		risks = append(risks, fmt.Sprintf("Low liquidity ($%.0f TVL): expect slippage on entry and exit", pool.TVL))
	}
	if allocation.YT > 0 {
		risks = append(risks, "YT value decays to zero at maturity")
	}
	if allocation.PT > 0 {
		risks = append(risks, "Fixed PT return is only locked in when held to maturity")
	}
	if pool.StrategyTag == types.StrategyRisky {
		risks = append(risks, "Yield or discount is unusually high: verify the underlying asset")
	}
	if pool.APYDefaulted {
		risks = append(risks, fmt.Sprintf("Feed reported no APY: a %.0f%% default was assumed", params.DefaultAPY*100))
	}
	if pool.PriceDefaulted {
		risks = append(risks, "PT/YT prices are defaults, not market estimates")
	}
	return risks
}

// ValidatePoolData checks that every numeric field the scorer reads is usable.
func ValidatePoolData(pool types.Pool) error {
	if pool.Address == "" {
		return errors.New("pool address cannot be empty")
	}
	if pool.DaysToMaturity < 0 {
		return errors.New("days to maturity cannot be negative")
	}

	fields := []struct {
		value float64
		name  string
	}{
		{pool.TVL, "tvl"},
		{pool.APY, "apy"},
		{pool.ImpliedYield, "implied yield"},
		{pool.PTPrice, "pt price"},
		{pool.YTPrice, "yt price"},
		{pool.PTDiscount, "pt discount"},
	}
	for _, f := range fields {
		if !utils.IsFinite(f.value) {
			return errors.New(f.name + " must be finite")
		}
	}
	if pool.TVL < 0 {
		return errors.New("TVL cannot be negative")
	}
	return nil
}

// ValidateScoringParameters performs the checks the score functions depend on.
func ValidateScoringParameters(params types.ScoringParameters) error {
	coefficients := []struct {
		value float64
		name  string
	}{
		{params.PTRiskConstant, "PTRiskConstant"},
		{params.YTRiskConstant, "YTRiskConstant"},
		{params.BaseScore, "BaseScore"},
		{params.YieldWeight, "YieldWeight"},
		{params.YieldCap, "YieldCap"},
		{params.LiquidityWeight, "LiquidityWeight"},
		{params.RiskWeight, "RiskWeight"},
		{params.MinTVLThreshold, "MinTVLThreshold"},
		{params.MaxTVLThreshold, "MaxTVLThreshold"},
	}
	for _, coeff := range coefficients {
		if !utils.IsFinite(coeff.value) {
			return errors.New(coeff.name + " must be finite")
		}
	}

	if params.YieldCap <= 0 {
		return errors.New("YieldCap must be positive")
	}
	if params.YieldWeight < 0 || params.LiquidityWeight < 0 || params.RiskWeight < 0 {
		return errors.New("score weights cannot be negative")
	}
	if params.MinTVLThreshold <= 0 || params.MaxTVLThreshold <= params.MinTVLThreshold {
		return errors.New("TVL thresholds must satisfy 0 < MinTVLThreshold < MaxTVLThreshold")
	}
	if params.PTRiskConstant > params.YTRiskConstant {
		return errors.New("PTRiskConstant cannot exceed YTRiskConstant")
	}
	return nil
}

func validateAllocation(a types.Allocation) error {
	if !utils.IsFinite(a.PT) || !utils.IsFinite(a.YT) || a.PT < 0 || a.YT < 0 {
		return fmt.Errorf("allocation percentages must be finite and non-negative, got %v/%v", a.PT, a.YT)
	}
	if math.Abs(a.PT+a.YT-100) > 1e-9 {
		return fmt.Errorf("allocation must sum to 100, got %v", a.PT+a.YT)
	}
	return nil
}

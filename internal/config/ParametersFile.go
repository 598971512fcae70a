package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/yield-navigator/pyn/internal/types"
	"gopkg.in/yaml.v3"
)

var ErrInvalidParameters = errors.New("invalid scoring parameters")

// LoadParametersFile overlays a YAML file on top of DefaultScoringParameters.
// Keys absent from the file keep their default value.
func LoadParametersFile(path string) (types.ScoringParameters, error) {
	params := DefaultScoringParameters

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("read parameters file: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("unmarshal parameters file: %w", err)
	}
	if err := ValidateScoringParameters(params); err != nil {
		return params, fmt.Errorf("validate parameters file %s: %w", path, err)
	}
	return params, nil
}

// ValidateScoringParameters checks the invariants the scorer relies on.
func ValidateScoringParameters(p types.ScoringParameters) error {
	var errs []error

	for name, a := range map[string]types.Allocation{
		"conservative": p.ConservativeAllocation,
		"neutral":      p.NeutralAllocation,
		"aggressive":   p.AggressiveAllocation,
	} {
		if err := ValidateAllocation(a); err != nil {
			errs = append(errs, fmt.Errorf("%s allocation: %w", name, err))
		}
	}

	if p.PTRiskConstant < 0 || p.PTRiskConstant > 1 || p.YTRiskConstant < 0 || p.YTRiskConstant > 1 {
		errs = append(errs, errors.New("risk constants must be within [0, 1]"))
	}
	if p.PTRiskConstant > p.YTRiskConstant {
		errs = append(errs, errors.New("pt_risk_constant must not exceed yt_risk_constant"))
	}
	if p.YieldWeight < 0 || p.LiquidityWeight < 0 || p.RiskWeight < 0 {
		errs = append(errs, errors.New("score weights must be non-negative"))
	}
	if p.YieldCap <= 0 {
		errs = append(errs, errors.New("yield_cap must be positive"))
	}
	if p.MinTVLThreshold <= 0 || p.MaxTVLThreshold <= p.MinTVLThreshold {
		errs = append(errs, errors.New("tvl thresholds must satisfy 0 < min < max"))
	}
	if p.DefaultAPY < 0 || p.ImpliedYieldMarkup <= 0 {
		errs = append(errs, errors.New("default_apy must be non-negative and implied_yield_markup positive"))
	}
	switch p.TagScale {
	case types.TagScalePercent, types.TagScaleFractionLegacy:
	default:
		errs = append(errs, fmt.Errorf("unknown tag_threshold_scale %q", p.TagScale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, errors.Join(errs...))
	}
	return nil
}

// ValidateAllocation checks that a split is non-negative and sums to 100.
func ValidateAllocation(a types.Allocation) error {
	if a.PT < 0 || a.YT < 0 {
		return errors.New("percentages must be non-negative")
	}
	if math.Abs(a.PT+a.YT-100) > 1e-9 {
		return fmt.Errorf("pt + yt must equal 100, got %v", a.PT+a.YT)
	}
	return nil
}

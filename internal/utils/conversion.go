/*
This file contains helpers for converting token amounts between the integer base-unit
strings reported by portfolio aggregators and the human-readable floats used for scoring.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for amount conversion
var (
	ErrInvalidDecimals  = errors.New("decimals are invalid")
	ErrAmountEmpty      = errors.New("amount is empty")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// MaxDecimals is the largest token precision the decimal type can represent exactly.
const MaxDecimals = 18

func decimalFactor(decimals int) sdkmath.LegacyDec {
	factor := sdkmath.LegacyOneDec()
	ten := sdkmath.LegacyNewDec(10)
	for i := 0; i < decimals; i++ {
		factor = factor.Mul(ten)
	}
	return factor
}

// RawAmountToFloat converts an integer base-unit amount (e.g. "1500000" with 6 decimals)
// into a float (1.5).
func RawAmountToFloat(raw string, decimals int) (float64, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return 0, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrAmountEmpty
	}

	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrConversionFailed, raw)
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result := sdkmath.LegacyNewDecFromInt(amount).Quo(decimalFactor(decimals))
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}
	return resultFloat, nil
}

// FloatToRawAmount converts a human-readable amount back into an integer base-unit string,
// rounded to the token's precision.
func FloatToRawAmount(amount float64, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, decimals, MaxDecimals)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return "", ErrAmountNegative
	}
	if amount == 0 {
		return "0", nil
	}

	// Format with the token precision so the decimal parse never sees an exponent
	amountStr := fmt.Sprintf("%.*f", decimals, amount)
	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	return decAmount.Mul(decimalFactor(decimals)).TruncateInt().String(), nil
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

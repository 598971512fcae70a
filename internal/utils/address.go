/*
This file contains the address and symbol normalization helpers. The market feed encodes
token addresses as "{chainId}-{address}"; everything past the feed boundary uses bare addresses.
*/

package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress returns the part after the last hyphen, or raw unchanged when it has none.
func NormalizeAddress(raw string) string {
	if i := strings.LastIndex(raw, "-"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// IsValidAddress reports whether addr is 0x followed by exactly 40 hex characters once normalized.
func IsValidAddress(addr string) bool {
	return evmAddressPattern.MatchString(NormalizeAddress(addr))
}

// AddressesEqual compares two addresses case-insensitively. Empty addresses never compare equal.
func AddressesEqual(a, b string) bool {
	a, b = NormalizeAddress(a), NormalizeAddress(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SymbolsEqual compares two tickers case-insensitively. Empty symbols never compare equal.
func SymbolsEqual(a, b string) bool {
	a, b = NormalizeSymbol(a), NormalizeSymbol(b)
	return a != "" && a == b
}

// ChainIDFromPrefixed extracts the chain id from a "{chainId}-{address}" string.
func ChainIDFromPrefixed(raw string) (int, bool) {
	i := strings.Index(raw, "-")
	if i <= 0 {
		return 0, false
	}
	id, err := strconv.Atoi(raw[:i])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

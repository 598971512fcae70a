package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bare", "0xABCDEF", "0xABCDEF"},
		{"chain prefixed", "8453-0xUSDC", "0xUSDC"},
		{"multiple hyphens", "1-2-0xabc", "0xabc"},
		{"trailing hyphen", "8453-", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.in))
		})
	}
}

func TestNormalizeAddressIdempotent(t *testing.T) {
	inputs := []string{"", "-", "--", "8453-0xabc", "0xabc", "a-b-c", "42161-0x" + strings.Repeat("f", 40)}
	for _, in := range inputs {
		once := NormalizeAddress(in)
		assert.Equal(t, once, NormalizeAddress(once), "input %q", in)
	}
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0x"+strings.Repeat("a", 40)))
	assert.True(t, IsValidAddress("0x"+strings.Repeat("A", 40)))
	assert.True(t, IsValidAddress("8453-0x"+strings.Repeat("0", 40)))
	assert.False(t, IsValidAddress("0x"+strings.Repeat("a", 39)))
	assert.False(t, IsValidAddress("0x"+strings.Repeat("a", 41)))
	assert.False(t, IsValidAddress("0x"+strings.Repeat("g", 40)))
	assert.False(t, IsValidAddress(strings.Repeat("a", 42)))
	assert.False(t, IsValidAddress(""))
}

func TestAddressesEqual(t *testing.T) {
	assert.True(t, AddressesEqual("0xAbC", "0xabc"))
	assert.True(t, AddressesEqual("8453-0xABC", "0xabc"))
	assert.False(t, AddressesEqual("0xabc", "0xabd"))
	assert.False(t, AddressesEqual("", ""))
	assert.False(t, AddressesEqual("0xabc", ""))
	assert.False(t, AddressesEqual("8453-", "1-"))
}

func TestSymbols(t *testing.T) {
	assert.Equal(t, "USDC", NormalizeSymbol("  usdc "))
	assert.True(t, SymbolsEqual("usdc", "USDC"))
	assert.False(t, SymbolsEqual("", ""))
	assert.False(t, SymbolsEqual("USDC", "USDT"))
}

func TestChainIDFromPrefixed(t *testing.T) {
	id, ok := ChainIDFromPrefixed("8453-0xabc")
	assert.True(t, ok)
	assert.Equal(t, 8453, id)

	for _, in := range []string{"0xabc", "-0xabc", "abc-0xabc", "0-0xabc", ""} {
		_, ok := ChainIDFromPrefixed(in)
		assert.False(t, ok, "input %q", in)
	}
}

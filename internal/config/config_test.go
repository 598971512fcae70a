package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yield-navigator/pyn/internal/types"
)

func TestDefaultScoringParametersAreValid(t *testing.T) {
	require.NoError(t, ValidateScoringParameters(DefaultScoringParameters))
	assert.Equal(t, types.Allocation{PT: 100, YT: 0}, DefaultScoringParameters.ConservativeAllocation)
	assert.Equal(t, types.Allocation{PT: 80, YT: 20}, DefaultScoringParameters.NeutralAllocation)
	assert.Equal(t, types.Allocation{PT: 0, YT: 100}, DefaultScoringParameters.AggressiveAllocation)
	assert.True(t, DefaultScoringParameters.FuzzyMatching)
}

func TestLoadParametersFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	content := []byte(`
neutral_allocation:
  pt: 60
  yt: 40
fuzzy_matching: false
tag_threshold_scale: fraction_legacy
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	params, err := LoadParametersFile(path)
	require.NoError(t, err)
	assert.Equal(t, types.Allocation{PT: 60, YT: 40}, params.NeutralAllocation)
	assert.False(t, params.FuzzyMatching)
	assert.Equal(t, types.TagScaleFractionLegacy, params.TagScale)
	assert.Equal(t, DefaultScoringParameters.ConservativeAllocation, params.ConservativeAllocation)
	assert.Equal(t, DefaultScoringParameters.DefaultAPY, params.DefaultAPY)
}

func TestLoadParametersFileRejectsBadAllocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aggressive_allocation: {pt: 10, yt: 100}\n"), 0o600))

	_, err := LoadParametersFile(path)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestLoadParametersFileMissing(t *testing.T) {
	_, err := LoadParametersFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateScoringParametersRejectsUnknownScale(t *testing.T) {
	p := DefaultScoringParameters
	p.TagScale = "basis_points"
	assert.ErrorIs(t, ValidateScoringParameters(p), ErrInvalidParameters)

	p = DefaultScoringParameters
	p.MaxTVLThreshold = p.MinTVLThreshold
	assert.ErrorIs(t, ValidateScoringParameters(p), ErrInvalidParameters)
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PENDLE_CHAIN_ID", "PENDLE_API_BASE", "MARKET_CACHE_TTL", "MARKET_REFRESH_INTERVAL", "WEB_PORT", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}

	require.NoError(t, LoadConfig())
	assert.Equal(t, DefaultChainID, ChainID)
	assert.Equal(t, defaultPendleAPIBase, PendleAPIBase)
	assert.Equal(t, 5*time.Minute, MarketCacheTTL)
	assert.Equal(t, "8080", WebPort)
	assert.Empty(t, RedisAddr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PENDLE_CHAIN_ID", "8453")
	t.Setenv("PENDLE_API_BASE", "http://localhost:9999/core/")
	t.Setenv("MARKET_CACHE_TTL", "30s")

	require.NoError(t, LoadConfig())
	assert.Equal(t, 8453, ChainID)
	assert.Equal(t, "http://localhost:9999/core", PendleAPIBase)
	assert.Equal(t, 30*time.Second, MarketCacheTTL)
	assert.Equal(t, "Base", ChainName(ChainID))
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("PENDLE_CHAIN_ID", "999999")
	assert.Error(t, LoadConfig())

	t.Setenv("PENDLE_CHAIN_ID", "")
	t.Setenv("MARKET_CACHE_TTL", "soon")
	assert.Error(t, LoadConfig())
}

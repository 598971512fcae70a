package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/types"
)

var offlineNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func offlineFixture(t *testing.T, assetSymbol, assetAddress string) offlineInput {
	t.Helper()
	dir := t.TempDir()
	expiry := offlineNow.Add(180 * 24 * time.Hour).Format(time.RFC3339)
	return offlineInput{
		AssetsPath: writeFile(t, dir, "assets.json",
			`[{"token":{"symbol":"`+assetSymbol+`","address":"`+assetAddress+`"},"balance":10000,"valueUSD":10000}]`),
		MarketsPath: writeFile(t, dir, "markets.json",
			`[{"address":"0xpool","expiry":"`+expiry+`","name":"PT-USDC-30JUN2026","underlyingAsset":"8453-0xusdc","details":{"aggregatedApy":0.12,"totalTvl":5000000}}]`),
		DetailsPath: writeFile(t, dir, "details.json", `[{"address":"0xpool","tvl":7000000}]`),
		Posture:     "pt",
	}
}

func TestRunOffline(t *testing.T) {
	set, err := runOffline(offlineFixture(t, "USDC", "0xusdc"), offlineNow)
	require.NoError(t, err)

	assert.Equal(t, types.StatusOK, set.Status)
	assert.Equal(t, types.PostureConservative, set.Posture)
	assert.Equal(t, offlineNow, set.GeneratedAt)
	require.Len(t, set.Recommendations, 1)
	assert.Equal(t, "0xpool", set.Recommendations[0].Pool.Address)
	assert.Equal(t, types.Allocation{PT: 100, YT: 0}, set.Recommendations[0].Allocation)
	assert.InDelta(t, 0.126, set.Recommendations[0].ExpectedAPY, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, set))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded["status"])
}

func TestRunOfflineNoMatch(t *testing.T) {
	set, err := runOffline(offlineFixture(t, "DAI", "0xdai"), offlineNow)
	assert.ErrorIs(t, err, analyzer.ErrNoMatchingPools)
	assert.Equal(t, types.StatusNoMatch, set.Status)
}

func TestRunOfflineInputErrors(t *testing.T) {
	in := offlineFixture(t, "USDC", "0xusdc")
	in.Posture = "yolo"
	_, err := runOffline(in, offlineNow)
	assert.Error(t, err)

	in = offlineFixture(t, "USDC", "0xusdc")
	in.MarketsPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = runOffline(in, offlineNow)
	assert.Error(t, err)

	in = offlineFixture(t, "USDC", "0xusdc")
	in.AssetsPath = writeFile(t, t.TempDir(), "bad.json", `{not json`)
	_, err = runOffline(in, offlineNow)
	assert.Error(t, err)
}

func TestMustAtoi(t *testing.T) {
	assert.Equal(t, 6543, mustAtoi("6543", 5432))
	assert.Equal(t, 5432, mustAtoi("", 5432))
	assert.Equal(t, 5432, mustAtoi("abc", 5432))
}

func TestDBConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")
	_, ok := dbConfigFromEnv()
	assert.False(t, ok)

	t.Setenv("DB_USER", "nav")
	t.Setenv("DB_NAME", "navigator")
	t.Setenv("DB_PORT", "6000")
	cfg, ok := dbConfigFromEnv()
	require.True(t, ok)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
}

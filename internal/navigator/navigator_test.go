package navigator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/cache"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/metrics"
	"github.com/yield-navigator/pyn/internal/types"
)

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeMarkets struct {
	markets []types.RawMarket
	err     error
	calls   int32
}

func (f *fakeMarkets) FetchMarkets(context.Context) ([]types.RawMarket, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.markets, f.err
}

type fakePortfolio struct {
	assets []types.Asset
	wallet string
}

func (f *fakePortfolio) FetchAssets(_ context.Context, wallet string) ([]types.Asset, error) {
	f.wallet = wallet
	return f.assets, nil
}

type fakeRecorder struct {
	snapshots []types.RecommendationSnapshot
	err       error
}

func (f *fakeRecorder) RecordSnapshot(s types.RecommendationSnapshot) (int64, error) {
	f.snapshots = append(f.snapshots, s)
	return int64(len(f.snapshots)), f.err
}

func usdcMarkets() []types.RawMarket {
	return []types.RawMarket{{
		Address:         "0xpool",
		Expiry:          testNow.Add(180 * 24 * time.Hour).Format(time.RFC3339),
		Name:            "PT-USDC-30JUN2026",
		UnderlyingAsset: "8453-0xusdc",
		Details:         &types.MarketDetails{AggregatedApy: 0.12, TotalTvl: 5_000_000},
	}}
}

func usdcAsset(value float64) types.Asset {
	return types.Asset{Token: types.Token{Symbol: "USDC", Address: "0xusdc"}, Balance: value, ValueUSD: value}
}

func newTestNavigator(t *testing.T, cfg Config) *Navigator {
	t.Helper()
	if cfg.Params == nil {
		params := config.DefaultScoringParameters
		cfg.Params = &params
	}
	cfg.Now = func() time.Time { return testNow }
	n, err := NewNavigator(cfg)
	require.NoError(t, err)
	return n
}

func TestNewNavigatorValidatesConfig(t *testing.T) {
	params := config.DefaultScoringParameters

	_, err := NewNavigator(Config{Params: &params})
	assert.Error(t, err)

	_, err = NewNavigator(Config{Markets: &fakeMarkets{}})
	assert.Error(t, err)

	bad := params
	bad.YieldCap = 0
	_, err = NewNavigator(Config{Markets: &fakeMarkets{}, Params: &bad})
	assert.ErrorIs(t, err, config.ErrInvalidParameters)
}

func TestRecommendWithAssets(t *testing.T) {
	reg := metrics.NewRegistry()
	recorder := &fakeRecorder{}
	n := newTestNavigator(t, Config{
		Markets:   &fakeMarkets{markets: usdcMarkets()},
		Snapshots: recorder,
		Metrics:   reg,
	})

	set, err := n.Recommend(context.Background(), Request{
		Assets:  []types.Asset{usdcAsset(10_000)},
		Posture: types.PostureConservative,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, set.ID)
	assert.Equal(t, testNow, set.GeneratedAt)
	assert.Equal(t, types.StatusOK, set.Status)
	require.Len(t, set.Recommendations, 1)
	assert.Equal(t, "0xpool", set.Recommendations[0].Pool.Address)

	require.Len(t, recorder.snapshots, 1)
	assert.Equal(t, set.ID, recorder.snapshots[0].RequestID)
	assert.Equal(t, 1, recorder.snapshots[0].AssetCount)
	assert.Equal(t, 1, recorder.snapshots[0].PoolCount)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RecommendationOutcomes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PoolsTransformed))
}

func TestRecommendDefaultsToNeutral(t *testing.T) {
	n := newTestNavigator(t, Config{Markets: &fakeMarkets{markets: usdcMarkets()}})
	set, err := n.Recommend(context.Background(), Request{Assets: []types.Asset{usdcAsset(100)}})
	require.NoError(t, err)
	assert.Equal(t, types.PostureNeutral, set.Posture)
	assert.Equal(t, types.Allocation{PT: 80, YT: 20}, set.Recommendations[0].Allocation)
}

func TestRecommendByWallet(t *testing.T) {
	portfolio := &fakePortfolio{assets: []types.Asset{usdcAsset(500)}}
	n := newTestNavigator(t, Config{
		Markets:   &fakeMarkets{markets: usdcMarkets()},
		Portfolio: portfolio,
	})

	set, err := n.Recommend(context.Background(), Request{Wallet: "0xwallet", Posture: types.PostureAggressive})
	require.NoError(t, err)
	assert.Equal(t, "0xwallet", portfolio.wallet)
	require.Len(t, set.Recommendations, 1)
	assert.Equal(t, 500.0, set.Recommendations[0].InvestmentAmount)
}

func TestRecommendWalletWithoutPortfolioSource(t *testing.T) {
	n := newTestNavigator(t, Config{Markets: &fakeMarkets{markets: usdcMarkets()}})
	_, err := n.Recommend(context.Background(), Request{Wallet: "0xwallet"})
	assert.ErrorIs(t, err, ErrNoPortfolioSource)
}

func TestRecommendEmptyOutcomesAreRecorded(t *testing.T) {
	reg := metrics.NewRegistry()
	recorder := &fakeRecorder{err: errors.New("db down")}
	n := newTestNavigator(t, Config{
		Markets:   &fakeMarkets{markets: usdcMarkets()},
		Snapshots: recorder,
		Metrics:   reg,
	})

	set, err := n.Recommend(context.Background(), Request{})
	assert.ErrorIs(t, err, analyzer.ErrNoInput)
	assert.Equal(t, types.StatusNoInput, set.Status)
	assert.NotEmpty(t, set.ID)

	set, err = n.Recommend(context.Background(), Request{Assets: []types.Asset{{Token: types.Token{Symbol: "DAI"}, ValueUSD: 10}}})
	assert.ErrorIs(t, err, analyzer.ErrNoMatchingPools)
	assert.Equal(t, types.StatusNoMatch, set.Status)
	assert.NotNil(t, set.Recommendations)

	// Recorder failures never fail the request
	assert.Len(t, recorder.snapshots, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RecommendationOutcomes.WithLabelValues("no_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RecommendationOutcomes.WithLabelValues("no_match")))
}

func TestRecommendUpstreamFailure(t *testing.T) {
	reg := metrics.NewRegistry()
	n := newTestNavigator(t, Config{
		Markets: &fakeMarkets{err: errors.New("feed down")},
		Metrics: reg,
	})

	_, err := n.Recommend(context.Background(), Request{Assets: []types.Asset{usdcAsset(1)}})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RecommendationOutcomes.WithLabelValues("error")))
}

func TestRecommendEmptyRequestSkipsFeed(t *testing.T) {
	markets := &fakeMarkets{err: errors.New("feed down")}
	n := newTestNavigator(t, Config{Markets: markets})

	set, err := n.Recommend(context.Background(), Request{})
	assert.ErrorIs(t, err, analyzer.ErrNoInput)
	assert.Equal(t, types.StatusNoInput, set.Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(&markets.calls))
}

func TestRecommendInvalidOverride(t *testing.T) {
	n := newTestNavigator(t, Config{Markets: &fakeMarkets{markets: usdcMarkets()}})
	_, err := n.Recommend(context.Background(), Request{
		Assets:     []types.Asset{usdcAsset(1)},
		Allocation: &types.Allocation{PT: 10, YT: 10},
	})
	assert.ErrorIs(t, err, analyzer.ErrInvalidAllocation)
}

func TestMarketsServedFromCache(t *testing.T) {
	reg := metrics.NewRegistry()
	source := &fakeMarkets{markets: usdcMarkets()}
	memCache, err := cache.NewMemoryMarketCache(8453)
	require.NoError(t, err)
	defer memCache.Close()

	n := newTestNavigator(t, Config{Markets: source, Cache: memCache, CacheTTL: time.Minute, Metrics: reg})

	for i := 0; i < 3; i++ {
		pools, err := n.Pools(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, pools, 1)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&source.calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("hit")))

	count, err := n.RefreshMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.calls))
}

func TestPoolsMergeSupplementaryDetails(t *testing.T) {
	raw := usdcMarkets()
	raw[0].Details = nil
	n := newTestNavigator(t, Config{
		Markets: &fakeMarkets{markets: raw},
		Details: []types.PoolDetailRecord{{Address: "0xpool", TVL: 100}},
	})

	pools, err := n.Pools(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pools[0].TVL)

	pools, err = n.Pools(context.Background(), []types.PoolDetailRecord{{Address: "0xPOOL", TVL: 900}})
	require.NoError(t, err)
	assert.Equal(t, 900.0, pools[0].TVL)
}

func TestTransformAndSetParams(t *testing.T) {
	n := newTestNavigator(t, Config{Markets: &fakeMarkets{}})
	pools := n.Transform(usdcMarkets(), nil)
	require.Len(t, pools, 1)
	assert.Equal(t, 180, pools[0].DaysToMaturity)

	params := config.DefaultScoringParameters
	params.FuzzyMatching = false
	id := int64(4)
	require.NoError(t, n.SetParams(params, &id))
	assert.False(t, n.Params().FuzzyMatching)

	params.YieldCap = -1
	assert.Error(t, n.SetParams(params, nil))
	assert.False(t, n.Params().FuzzyMatching)
}

func TestRunRefreshLoopStopsOnCancel(t *testing.T) {
	source := &fakeMarkets{markets: usdcMarkets()}
	n := newTestNavigator(t, Config{Markets: source})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.RunRefreshLoop(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&source.calls) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}

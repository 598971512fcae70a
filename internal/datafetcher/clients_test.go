package datafetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yield-navigator/pyn/internal/metrics"
	"github.com/yield-navigator/pyn/internal/types"
)

func fastOpts() ClientOptions {
	return ClientOptions{RequestsPerSecond: 1000, Burst: 100}
}

func TestPendleClientFetchMarketsPaginates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/42161/markets", r.URL.Path)

		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		n := marketPageSize
		if skip >= marketPageSize {
			n = 3
		}
		var items []string
		for i := 0; i < n; i++ {
			items = append(items, fmt.Sprintf(`{"address":"0x%d","expiry":"2027-01-01T00:00:00.000Z","name":"PT-USDC-1JAN2027","underlyingAsset":"42161-0xusdc","details":{"aggregatedApy":0.1}}`, skip+i))
		}
		fmt.Fprintf(w, `{"total":%d,"limit":100,"skip":%d,"results":[%s]}`, marketPageSize+3, skip, strings.Join(items, ","))
	}))
	defer srv.Close()

	client := NewPendleClient(srv.URL+"/", 42161, fastOpts())
	markets, err := client.FetchMarkets(context.Background())
	require.NoError(t, err)

	assert.Len(t, markets, marketPageSize+3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "42161-0xusdc", markets[0].UnderlyingAsset)
	require.NotNil(t, markets[0].Details)
	assert.Equal(t, 0.1, markets[0].Details.AggregatedApy)
	assert.Equal(t, 42161, client.ChainID())
}

func TestPendleClientDecodesUnderlyingObjectAndFlatYields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"address":"0xa","expiry":"2027-01-01","proName":"PT-sUSDe","underlyingAsset":{"id":"1-0xSUSDE"},"impliedApy":0.2,"liquidity":{"usd":1500}},
			{"address":"0xb","expiry":"2027-01-01","underlyingAsset":{"chainId":8453,"address":"0xB0B"}},
			{"address":"0xc","expiry":"2027-01-01","underlyingAsset":null}
		]}`)
	}))
	defer srv.Close()

	markets, err := NewPendleClient(srv.URL, 1, fastOpts()).FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 3)

	assert.Equal(t, "1-0xSUSDE", markets[0].UnderlyingAsset)
	assert.Equal(t, "PT-sUSDe", markets[0].Name)
	require.NotNil(t, markets[0].Details)
	assert.Equal(t, 0.2, markets[0].Details.ImpliedApy)
	assert.Equal(t, 1500.0, markets[0].Details.Liquidity)

	assert.Equal(t, "8453-0xB0B", markets[1].UnderlyingAsset)
	assert.Nil(t, markets[1].Details)
	assert.Equal(t, "", markets[2].UnderlyingAsset)
}

func TestPendleClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := metrics.NewRegistry()
	opts := fastOpts()
	opts.Metrics = reg

	_, err := NewPendleClient(srv.URL, 1, opts).FetchMarkets(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamStatus)
}

func TestPendleClientInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [`)
	}))
	defer srv.Close()

	_, err := NewPendleClient(srv.URL, 1, fastOpts()).FetchMarkets(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPendleClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewPendleClient(srv.URL, 1, fastOpts())
	for i := 0; i < breakerFailureThreshold; i++ {
		_, err := client.FetchMarkets(context.Background())
		require.ErrorIs(t, err, ErrUpstreamStatus)
	}

	_, err := client.FetchMarkets(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(breakerFailureThreshold), atomic.LoadInt32(&calls))
}

func TestPendleClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPendleClient(srv.URL, 1, fastOpts()).FetchMarkets(ctx)
	assert.Error(t, err)
}

func TestPortfolioClientFetchAssets(t *testing.T) {
	wallet := "0x" + strings.Repeat("a", 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/portfolio", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, wallet, r.URL.Query().Get("addresses"))
		fmt.Fprint(w, `{"address":"`+wallet+`","networth":2500,"assets":[
			{"symbol":"USDC","contractAddress":"42161-0xAF88","decimals":6,"rawBalance":"1500000000","price":1},
			{"symbol":"WETH","balance":0.5,"value":1000}
		]}`)
	}))
	defer srv.Close()

	assets, err := NewPortfolioClient(srv.URL, "secret", fastOpts()).FetchAssets(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "0xaf88", assets[0].Token.Address)
	assert.Equal(t, 42161, assets[0].Token.ChainID)
	assert.InDelta(t, 1500.0, assets[0].Balance, 1e-9)
	assert.InDelta(t, 1500.0, assets[0].ValueUSD, 1e-9)

	assert.Equal(t, 1000.0, assets[1].ValueUSD)
	assert.InDelta(t, 2000.0, assets[1].Token.PriceUSD, 1e-9)
	assert.Equal(t, types.DefaultTokenDecimals, assets[1].Token.Decimals)
}

func TestPortfolioClientRejectsInvalidWallet(t *testing.T) {
	client := NewPortfolioClient("http://127.0.0.1:0", "", fastOpts())
	_, err := client.FetchHoldings(context.Background(), "not-a-wallet")
	assert.ErrorIs(t, err, ErrInvalidWallet)
}

func TestHoldingsToAssets(t *testing.T) {
	holdings := []types.RawHolding{
		{},
		{Address: "0xABC", Balance: 2, Price: 3},
		{Symbol: "DAI", RawBalance: "garbage", Decimals: intPtr(18), Value: 50},
		{Symbol: "ZERO"},
		{Symbol: "TICKET", RawBalance: "7", Decimals: intPtr(0), Price: 2},
		{Symbol: "WETH", RawBalance: "1500000000000000000", Price: 2000},
	}

	assets := HoldingsToAssets(holdings)
	require.Len(t, assets, 5)

	assert.Equal(t, "0xabc", assets[0].Token.Address)
	assert.Equal(t, 6.0, assets[0].ValueUSD)

	assert.Equal(t, "DAI", assets[1].Token.Symbol)
	assert.Equal(t, 0.0, assets[1].Balance)
	assert.Equal(t, 50.0, assets[1].ValueUSD)

	assert.Equal(t, 0.0, assets[2].ValueUSD)

	assert.Equal(t, 0, assets[3].Token.Decimals)
	assert.Equal(t, 7.0, assets[3].Balance)
	assert.Equal(t, 14.0, assets[3].ValueUSD)

	assert.Equal(t, types.DefaultTokenDecimals, assets[4].Token.Decimals)
	assert.InDelta(t, 1.5, assets[4].Balance, 1e-12)
	assert.InDelta(t, 3000.0, assets[4].ValueUSD, 1e-9)
}

func intPtr(v int) *int { return &v }

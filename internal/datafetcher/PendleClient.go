/*
This file is used to fetch PT/YT market records from the Pendle market-data API.

The API has shipped two shapes for underlyingAsset over time: a "{chainId}-{address}" string
and an object carrying the same id. Both are folded into the string form here so the
transformer only ever sees one.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yield-navigator/pyn/internal/types"
)

const (
	pendleSource   = "pendle"
	marketPageSize = 100
	maxMarketPages = 50
)

// PendleClient fetches market data from the Pendle API for one chain.
type PendleClient struct {
	rest    *restClient
	chainID int
}

// NewPendleClient creates a client for baseURL (e.g. https://api-v2.pendle.finance/core).
func NewPendleClient(baseURL string, chainID int, opts ClientOptions) *PendleClient {
	return &PendleClient{
		rest:    newRestClient(pendleSource, strings.TrimRight(baseURL, "/"), nil, opts),
		chainID: chainID,
	}
}

// ChainID returns the chain this client queries.
func (c *PendleClient) ChainID() int {
	return c.chainID
}

type pendleMarketsPage struct {
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Skip    int               `json:"skip"`
	Results []pendleMarketRaw `json:"results"`
}

type pendleMarketRaw struct {
	Address         string               `json:"address"`
	Expiry          string               `json:"expiry"`
	Name            string               `json:"name"`
	ProName         string               `json:"proName"`
	UnderlyingAsset json.RawMessage      `json:"underlyingAsset"`
	Details         *types.MarketDetails `json:"details"`
	Liquidity       *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	UnderlyingApy float64 `json:"underlyingApy"`
	ImpliedApy    float64 `json:"impliedApy"`
	AggregatedApy float64 `json:"aggregatedApy"`
}

// FetchMarkets pages through every market on the configured chain.
func (c *PendleClient) FetchMarkets(ctx context.Context) ([]types.RawMarket, error) {
	path := "/v1/" + strconv.Itoa(c.chainID) + "/markets"
	var markets []types.RawMarket

	for page := 0; page < maxMarketPages; page++ {
		query := url.Values{}
		query.Set("skip", strconv.Itoa(page*marketPageSize))
		query.Set("limit", strconv.Itoa(marketPageSize))

		var resp pendleMarketsPage
		if err := c.rest.getJSON(ctx, path, query, &resp); err != nil {
			return nil, fmt.Errorf("fetch markets page %d: %w", page, err)
		}

		for _, m := range resp.Results {
			markets = append(markets, m.toRawMarket())
		}

		// Stop on a short page, or once the reported total is reached
		if len(resp.Results) < marketPageSize || (resp.Total > 0 && len(markets) >= resp.Total) {
			break
		}
		c.rest.logger.Debug().
			Int("fetched", len(resp.Results)).
			Int("totalSoFar", len(markets)).
			Msg("Fetched page of markets, continuing pagination")
	}

	c.rest.logger.Info().
		Int("chainId", c.chainID).
		Int("markets", len(markets)).
		Msg("Fetched markets from Pendle")

	return markets, nil
}

func (m pendleMarketRaw) toRawMarket() types.RawMarket {
	name := m.Name
	if name == "" {
		name = m.ProName
	}

	details := m.Details
	if details == nil && (m.UnderlyingApy > 0 || m.ImpliedApy > 0 || m.AggregatedApy > 0 || m.Liquidity != nil) {
		details = &types.MarketDetails{
			UnderlyingApy: m.UnderlyingApy,
			ImpliedApy:    m.ImpliedApy,
			AggregatedApy: m.AggregatedApy,
		}
		if m.Liquidity != nil {
			details.Liquidity = m.Liquidity.USD
		}
	}

	return types.RawMarket{
		Address:         m.Address,
		Expiry:          m.Expiry,
		UnderlyingAsset: decodeUnderlying(m.UnderlyingAsset),
		Name:            name,
		Details:         details,
	}
}

// decodeUnderlying accepts either "8453-0x..." or {"id": "8453-0x...", "address": "0x..."}.
func decodeUnderlying(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID      string `json:"id"`
		Address string `json:"address"`
		ChainID int    `json:"chainId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.ID != "" {
		return obj.ID
	}
	if obj.ChainID > 0 && obj.Address != "" {
		return strconv.Itoa(obj.ChainID) + "-" + obj.Address
	}
	return obj.Address
}

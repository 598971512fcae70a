/*
This file is used to fetch wallet holdings from a portfolio aggregator and to normalize them
into assets. HoldingsToAssets is the only place aggregator shapes are interpreted; the
scoring core only ever sees types.Asset.
*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/utils"
)

var holdingsLogger = logger.GetForComponent("holdings_adapter")

var ErrInvalidWallet = errors.New("invalid wallet address")

const portfolioSource = "portfolio"

// PortfolioClient fetches holdings for a wallet from an Octav-style aggregator.
type PortfolioClient struct {
	rest *restClient
}

// NewPortfolioClient creates a client authenticating with apiKey as a bearer token.
func NewPortfolioClient(baseURL, apiKey string, opts ClientOptions) *PortfolioClient {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &PortfolioClient{
		rest: newRestClient(portfolioSource, strings.TrimRight(baseURL, "/"), headers, opts),
	}
}

type portfolioResponse struct {
	Address  string             `json:"address"`
	NetWorth float64            `json:"networth"`
	Assets   []types.RawHolding `json:"assets"`
}

// FetchHoldings returns the raw holdings of wallet.
func (c *PortfolioClient) FetchHoldings(ctx context.Context, wallet string) ([]types.RawHolding, error) {
	wallet = strings.TrimSpace(wallet)
	if !utils.IsValidAddress(wallet) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}

	query := url.Values{}
	query.Set("addresses", utils.NormalizeAddress(wallet))

	var resp portfolioResponse
	if err := c.rest.getJSON(ctx, "/v1/portfolio", query, &resp); err != nil {
		return nil, fmt.Errorf("fetch portfolio: %w", err)
	}

	c.rest.logger.Info().
		Str("wallet", wallet).
		Int("holdings", len(resp.Assets)).
		Float64("networth", resp.NetWorth).
		Msg("Fetched wallet portfolio")

	return resp.Assets, nil
}

// FetchAssets returns the normalized holdings of wallet.
func (c *PortfolioClient) FetchAssets(ctx context.Context, wallet string) ([]types.Asset, error) {
	holdings, err := c.FetchHoldings(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return HoldingsToAssets(holdings), nil
}

// HoldingsToAssets normalizes aggregator holdings. Holdings with neither symbol nor address are
// dropped. Balance comes from the scaled balance, else the raw base-unit amount; USD value comes
// from the reported value, else balance * price. Missing decimals default to 18, an explicit 0
// is kept.
func HoldingsToAssets(holdings []types.RawHolding) []types.Asset {
	assets := make([]types.Asset, 0, len(holdings))

	for _, h := range holdings {
		rawAddress := strings.TrimSpace(h.Address)
		token := types.Token{
			Address:  strings.ToLower(utils.NormalizeAddress(rawAddress)),
			Symbol:   strings.TrimSpace(h.Symbol),
			Decimals: types.DefaultTokenDecimals,
			ChainID:  h.ChainID,
			PriceUSD: h.Price,
		}
		if token.Address == "" && token.Symbol == "" {
			holdingsLogger.Debug().Msg("Dropping holding without symbol or address")
			continue
		}
		if h.Decimals != nil && *h.Decimals >= 0 {
			token.Decimals = *h.Decimals
		}
		if token.ChainID == 0 {
			if id, ok := utils.ChainIDFromPrefixed(rawAddress); ok {
				token.ChainID = id
			}
		}

		balance := h.Balance
		if balance <= 0 && h.RawBalance != "" {
			converted, err := utils.RawAmountToFloat(h.RawBalance, token.Decimals)
			if err != nil {
				holdingsLogger.Warn().
					Err(err).
					Str("symbol", token.Symbol).
					Str("rawBalance", h.RawBalance).
					Msg("Could not convert raw balance")
			} else {
				balance = converted
			}
		}

		if token.PriceUSD <= 0 && h.Value > 0 && balance > 0 {
			token.PriceUSD = h.Value / balance
		}

		value := h.Value
		if value <= 0 {
			value = balance * token.PriceUSD
		}
		if !utils.IsFinite(value) {
			value = 0
		}

		assets = append(assets, types.Asset{
			Token:    token,
			Balance:  balance,
			ValueUSD: value,
		})
	}

	return assets
}

package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/cache"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/datafetcher"
	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/metrics"
	"github.com/yield-navigator/pyn/internal/state"
	"github.com/yield-navigator/pyn/internal/types"
)

const (
	DefaultScoringConfigName    = "default_navigator_strategy"
	DefaultScoringConfigVersion = 1

	defaultCacheTTL = 5 * time.Minute
)

var ErrNoPortfolioSource = errors.New("wallet lookups are not configured")

// MarketSource lists the raw markets of one chain.
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]types.RawMarket, error)
}

// PortfolioSource resolves a wallet to its normalized holdings.
type PortfolioSource interface {
	FetchAssets(ctx context.Context, wallet string) ([]types.Asset, error)
}

// SnapshotRecorder persists computed recommendation sets.
type SnapshotRecorder interface {
	RecordSnapshot(snapshot types.RecommendationSnapshot) (int64, error)
}

// DBRecorder records snapshots through the state package.
type DBRecorder struct{}

func (DBRecorder) RecordSnapshot(snapshot types.RecommendationSnapshot) (int64, error) {
	return state.SaveRecommendationSnapshot(snapshot)
}

// Navigator serves recommendation requests over live market data.
type Navigator struct {
	logger zerolog.Logger

	markets   MarketSource
	portfolio PortfolioSource
	cache     cache.MarketCache
	cacheTTL  time.Duration
	details   []types.PoolDetailRecord
	snapshots SnapshotRecorder
	metrics   *metrics.Registry
	now       func() time.Time

	mu       sync.RWMutex
	params   types.ScoringParameters
	paramsID *int64

	configName    string
	configVersion int
	refreshCount  int
}

// Config holds the configuration for creating a new Navigator instance.
// Only Markets and Params are required.
type Config struct {
	Markets   MarketSource
	Portfolio PortfolioSource
	Cache     cache.MarketCache
	CacheTTL  time.Duration
	Details   []types.PoolDetailRecord // Supplementary details merged into every transformation
	Snapshots SnapshotRecorder
	Metrics   *metrics.Registry

	Params        *types.ScoringParameters
	ParamsID      *int64
	ConfigName    string
	ConfigVersion int

	Now func() time.Time
}

// NewNavigator creates a new Navigator instance with dependency injection
func NewNavigator(cfg Config) (*Navigator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("navigator configuration validation failed: %w", err)
	}

	n := &Navigator{
		logger:        logger.GetForComponent("navigator_core"),
		markets:       cfg.Markets,
		portfolio:     cfg.Portfolio,
		cache:         cfg.Cache,
		cacheTTL:      cfg.CacheTTL,
		details:       cfg.Details,
		snapshots:     cfg.Snapshots,
		metrics:       cfg.Metrics,
		now:           cfg.Now,
		params:        *cfg.Params,
		paramsID:      cfg.ParamsID,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
	}
	if n.cacheTTL <= 0 {
		n.cacheTTL = defaultCacheTTL
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.configName == "" {
		n.configName = DefaultScoringConfigName
	}
	if n.configVersion <= 0 {
		n.configVersion = DefaultScoringConfigVersion
	}

	n.logger.Info().
		Str("configName", n.configName).
		Int("configVersion", n.configVersion).
		Bool("cache", n.cache != nil).
		Bool("portfolio", n.portfolio != nil).
		Bool("snapshots", n.snapshots != nil).
		Msg("Navigator instance created")

	return n, nil
}

func validateConfig(cfg Config) error {
	if cfg.Markets == nil {
		return fmt.Errorf("market source cannot be nil")
	}
	if cfg.Params == nil {
		return fmt.Errorf("scoring parameters cannot be nil")
	}
	if err := config.ValidateScoringParameters(*cfg.Params); err != nil {
		return err
	}
	return nil
}

// Params returns the scoring parameters currently in use.
func (n *Navigator) Params() types.ScoringParameters {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.params
}

// SetParams swaps the scoring parameters used by subsequent requests.
func (n *Navigator) SetParams(params types.ScoringParameters, paramsID *int64) error {
	if err := config.ValidateScoringParameters(params); err != nil {
		return err
	}
	n.mu.Lock()
	n.params = params
	n.paramsID = paramsID
	n.mu.Unlock()

	n.logger.Info().Bool("persisted", paramsID != nil).Msg("Scoring parameters replaced")
	return nil
}

func (n *Navigator) currentParams() (types.ScoringParameters, *int64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.params, n.paramsID
}

// Request is one recommendation request. Assets take precedence over Wallet.
type Request struct {
	Assets     []types.Asset
	Wallet     string
	Posture    types.RiskPosture
	Allocation *types.Allocation
	Details    []types.PoolDetailRecord
}

// Recommend builds a recommendation set for the request. The no-input and no-match outcomes
// return analyzer.ErrNoInput / analyzer.ErrNoMatchingPools together with a usable set.
func (n *Navigator) Recommend(ctx context.Context, req Request) (types.RecommendationSet, error) {
	start := n.now()
	requestID := uuid.New().String()
	reqLogger := n.logger.With().Str("request_id", requestID).Logger()

	posture := req.Posture
	if posture == "" {
		posture = types.PostureNeutral
	}
	params, paramsID := n.currentParams()

	// Empty requests are answered without touching the market feed.
	var pools []types.Pool
	var err error
	if len(req.Assets) > 0 || req.Wallet != "" {
		pools, err = n.pools(ctx, req.Details, params)
		if err != nil {
			n.observe("error", start)
			reqLogger.Error().Err(err).Msg("Request aborted: failed to load pools")
			return types.RecommendationSet{}, err
		}
	}

	assets := req.Assets
	if len(assets) == 0 && req.Wallet != "" {
		if n.portfolio == nil {
			n.observe("error", start)
			return types.RecommendationSet{}, ErrNoPortfolioSource
		}
		assets, err = n.portfolio.FetchAssets(ctx, req.Wallet)
		if err != nil {
			n.observe("error", start)
			reqLogger.Error().Err(err).Str("wallet", req.Wallet).Msg("Request aborted: failed to fetch wallet holdings")
			return types.RecommendationSet{}, fmt.Errorf("fetch wallet holdings: %w", err)
		}
	}

	set, err := analyzer.GetRecommendationsWithAllocation(assets, pools, posture, params, req.Allocation)
	set.ID = requestID
	set.GeneratedAt = start.UTC()

	if err != nil && !errors.Is(err, analyzer.ErrNoInput) && !errors.Is(err, analyzer.ErrNoMatchingPools) {
		n.observe("error", start)
		reqLogger.Error().Err(err).Msg("Recommendation failed")
		return set, err
	}

	n.record(reqLogger, state.SnapshotFromSet(set, req.Wallet, len(assets), len(pools), paramsID))
	n.observe(string(set.Status), start)

	reqLogger.Info().
		Str("status", string(set.Status)).
		Str("posture", string(posture)).
		Int("assets", len(assets)).
		Int("pools", len(pools)).
		Int("positions", len(set.Recommendations)).
		Dur("duration", n.now().Sub(start)).
		Msg("Recommendation request completed")

	return set, err
}

// Pools returns the current pool list, transformed with the configured supplementary details
// plus any given ones.
func (n *Navigator) Pools(ctx context.Context, details []types.PoolDetailRecord) ([]types.Pool, error) {
	params, _ := n.currentParams()
	return n.pools(ctx, details, params)
}

// Transform converts caller-supplied raw markets without touching the upstream feed.
func (n *Navigator) Transform(raw []types.RawMarket, details []types.PoolDetailRecord) []types.Pool {
	params, _ := n.currentParams()
	pools := datafetcher.TransformMarkets(raw, details, n.now(), params)
	n.metrics.SetPoolsTransformed(len(pools))
	return pools
}

func (n *Navigator) pools(ctx context.Context, details []types.PoolDetailRecord, params types.ScoringParameters) ([]types.Pool, error) {
	raw, err := n.loadMarkets(ctx)
	if err != nil {
		return nil, err
	}

	merged := details
	if len(n.details) > 0 {
		// Request details come last so they win on duplicate addresses
		merged = append(append([]types.PoolDetailRecord{}, n.details...), details...)
	}

	pools := datafetcher.TransformMarkets(raw, merged, n.now(), params)
	n.metrics.SetPoolsTransformed(len(pools))
	return pools, nil
}

// loadMarkets reads the cache first and falls back to the market source. Cache failures are
// logged and treated as misses.
func (n *Navigator) loadMarkets(ctx context.Context) ([]types.RawMarket, error) {
	if n.cache != nil {
		markets, ok, err := n.cache.GetMarkets(ctx)
		switch {
		case err != nil:
			n.metrics.ObserveCache("error")
			n.logger.Warn().Err(err).Msg("Market cache read failed, fetching from source")
		case ok:
			n.metrics.ObserveCache("hit")
			return markets, nil
		default:
			n.metrics.ObserveCache("miss")
		}
	}
	return n.fetchAndCache(ctx)
}

func (n *Navigator) fetchAndCache(ctx context.Context) ([]types.RawMarket, error) {
	markets, err := n.markets.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	if n.cache != nil {
		if err := n.cache.SetMarkets(ctx, markets, n.cacheTTL); err != nil {
			n.logger.Warn().Err(err).Msg("Failed to write markets to cache")
		}
	}
	return markets, nil
}

// RefreshMarkets fetches markets from the source and overwrites the cache.
func (n *Navigator) RefreshMarkets(ctx context.Context) (int, error) {
	markets, err := n.fetchAndCache(ctx)
	if err != nil {
		return 0, err
	}
	return len(markets), nil
}

// RunRefreshLoop keeps the market cache warm, refreshing immediately and then every interval.
func (n *Navigator) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	n.logger.Info().
		Dur("interval", interval).
		Msg("Starting market refresh loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.runRefresh(ctx)
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("Market refresh loop stopped due to context cancellation")
			return
		case <-ticker.C:
			n.runRefresh(ctx)
		}
	}
}

func (n *Navigator) runRefresh(ctx context.Context) {
	n.refreshCount++
	refreshLogger := n.logger.With().
		Str("refresh_id", uuid.New().String()).
		Int("refresh", n.refreshCount).
		Logger()

	count, err := n.RefreshMarkets(ctx)
	if err != nil {
		refreshLogger.Error().Err(err).Msg("Market refresh failed")
		return
	}
	refreshLogger.Info().Int("markets", count).Msg("Market cache refreshed")
}

func (n *Navigator) record(reqLogger zerolog.Logger, snapshot types.RecommendationSnapshot) {
	if n.snapshots == nil {
		return
	}
	id, err := n.snapshots.RecordSnapshot(snapshot)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Failed to save recommendation snapshot")
		return
	}
	reqLogger.Debug().Int64("snapshot_id", id).Msg("Recommendation snapshot recorded")
}

func (n *Navigator) observe(outcome string, start time.Time) {
	n.metrics.ObserveRecommendation(outcome, n.now().Sub(start))
}

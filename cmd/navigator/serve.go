package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yield-navigator/pyn/internal/cache"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/datafetcher"
	"github.com/yield-navigator/pyn/internal/metrics"
	"github.com/yield-navigator/pyn/internal/navigator"
	"github.com/yield-navigator/pyn/internal/state"
	"github.com/yield-navigator/pyn/internal/types"
	"github.com/yield-navigator/pyn/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background market refresh loop",
	Long: `Starts the recommendation API. Postgres (DB_*) enables snapshot history and stored
scoring parameters; REDIS_ADDR selects the shared market cache, otherwise an in-process
cache is used.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := initEnvironment(); err != nil {
		return err
	}
	log.Info().Msg("Pendle Yield Navigator starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()

	// Database is optional: without it snapshots are not kept
	persistence := false
	if dbCfg, ok := dbConfigFromEnv(); ok {
		if err := state.InitDB(dbCfg); err != nil {
			return err
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			return err
		}
		persistence = true
	} else {
		log.Warn().Msg("DB_USER/DB_NAME not set, running without persistence")
	}

	params, paramsID, err := loadScoringParameters(persistence)
	if err != nil {
		return err
	}

	marketCache, closeCache, err := newMarketCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	clientOpts := datafetcher.ClientOptions{Metrics: reg}
	navCfg := navigator.Config{
		Markets:       datafetcher.NewPendleClient(config.PendleAPIBase, config.ChainID, clientOpts),
		Cache:         marketCache,
		CacheTTL:      config.MarketCacheTTL,
		Metrics:       reg,
		Params:        params,
		ParamsID:      paramsID,
		ConfigName:    navigator.DefaultScoringConfigName,
		ConfigVersion: navigator.DefaultScoringConfigVersion,
	}
	if config.PortfolioAPIBase != "" {
		navCfg.Portfolio = datafetcher.NewPortfolioClient(config.PortfolioAPIBase, config.PortfolioAPIKey, clientOpts)
	}
	if persistence {
		navCfg.Snapshots = navigator.DBRecorder{}
	}

	nav, err := navigator.NewNavigator(navCfg)
	if err != nil {
		return err
	}

	webCfg := web.Config{Port: config.WebPort, Engine: nav, Metrics: reg}
	if persistence {
		webCfg.Snapshots = web.DBSnapshotStore{}
	}
	webServer, err := web.NewWebServer(webCfg)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting navigator API")
		serverErr <- webServer.Start()
	}()

	go nav.RunRefreshLoop(ctx, config.MarketRefreshInterval)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Web server failed")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return webServer.Shutdown(shutdownCtx)
}

// loadScoringParameters resolves parameters from the database, then the YAML file, then the
// defaults. Defaults are saved as the active version when the database has none.
func loadScoringParameters(persistence bool) (*types.ScoringParameters, *int64, error) {
	params := config.DefaultScoringParameters
	if config.ParametersFile != "" {
		fileParams, err := config.LoadParametersFile(config.ParametersFile)
		if err != nil {
			return nil, nil, err
		}
		params = fileParams
		log.Info().Str("file", config.ParametersFile).Msg("Scoring parameters loaded from file")
	}

	if !persistence {
		return &params, nil, nil
	}

	if config.ParametersFile == "" {
		stored, err := state.LoadActiveScoringParameters(navigator.DefaultScoringConfigName)
		if err == nil {
			id, err := state.GetActiveScoringParametersID(navigator.DefaultScoringConfigName)
			if err != nil {
				return nil, nil, err
			}
			log.Info().Msg("Scoring parameters loaded from database.")
			return stored, id, nil
		}
		if !errors.Is(err, state.ErrNoActiveParameters) {
			return nil, nil, err
		}
		log.Warn().Msg("No active scoring parameters, using defaults and saving.")
	}

	id, err := state.SaveScoringParameters(params, navigator.DefaultScoringConfigName, navigator.DefaultScoringConfigVersion, true)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to save scoring parameters, continuing unversioned")
		return &params, nil, nil
	}
	return &params, &id, nil
}

// newMarketCache picks Redis when REDIS_ADDR is set, otherwise the in-process cache.
func newMarketCache(ctx context.Context) (cache.MarketCache, func(), error) {
	if config.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, config.RedisAddr, config.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", config.RedisAddr).Msg("Using Redis market cache")
		return cache.NewRedisMarketCache(client, config.ChainID), func() { _ = client.Close() }, nil
	}

	mem, err := cache.NewMemoryMarketCache(config.ChainID)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Using in-process market cache")
	return mem, mem.Close, nil
}

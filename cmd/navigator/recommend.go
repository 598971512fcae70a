package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yield-navigator/pyn/internal/analyzer"
	"github.com/yield-navigator/pyn/internal/config"
	"github.com/yield-navigator/pyn/internal/datafetcher"
	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
)

// Command flags
var (
	recommendAssets  string
	recommendMarkets string
	recommendDetails string
	recommendPosture string
	recommendParams  string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Score a portfolio against a market snapshot offline and print the result as JSON",
	Long: `Reads holdings (a JSON array of assets) and raw markets (a JSON array of market records)
from files, runs the scoring pipeline and prints the recommendation set. No network or
database access is needed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Initialize(os.Getenv("LOG_LEVEL"))

		in := offlineInput{
			AssetsPath:  recommendAssets,
			MarketsPath: recommendMarkets,
			DetailsPath: recommendDetails,
			ParamsPath:  recommendParams,
			Posture:     recommendPosture,
		}
		set, err := runOffline(in, time.Now())
		if err != nil && !errors.Is(err, analyzer.ErrNoInput) && !errors.Is(err, analyzer.ErrNoMatchingPools) {
			return err
		}
		if writeErr := writeJSON(cmd.OutOrStdout(), set); writeErr != nil {
			return writeErr
		}
		return err
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendAssets, "assets", "", "JSON file with the holdings to score (required)")
	recommendCmd.Flags().StringVar(&recommendMarkets, "markets", "", "JSON file with raw market records (required)")
	recommendCmd.Flags().StringVar(&recommendDetails, "details", "", "Optional JSON file with supplementary pool details")
	recommendCmd.Flags().StringVar(&recommendPosture, "posture", "neutral", "Risk posture: conservative|neutral|aggressive (or pt|split|yt)")
	recommendCmd.Flags().StringVar(&recommendParams, "params", "", "Optional YAML file overriding the default scoring parameters")
	_ = recommendCmd.MarkFlagRequired("assets")
	_ = recommendCmd.MarkFlagRequired("markets")
}

type offlineInput struct {
	AssetsPath  string
	MarketsPath string
	DetailsPath string
	ParamsPath  string
	Posture     string
}

// runOffline runs transform, match, score and rank over file inputs.
func runOffline(in offlineInput, now time.Time) (types.RecommendationSet, error) {
	posture, err := types.ParseRiskPosture(in.Posture)
	if err != nil {
		return types.RecommendationSet{}, err
	}

	params := config.DefaultScoringParameters
	if in.ParamsPath != "" {
		if params, err = config.LoadParametersFile(in.ParamsPath); err != nil {
			return types.RecommendationSet{}, err
		}
	}

	var assets []types.Asset
	if err := readJSONFile(in.AssetsPath, &assets); err != nil {
		return types.RecommendationSet{}, err
	}
	var markets []types.RawMarket
	if err := readJSONFile(in.MarketsPath, &markets); err != nil {
		return types.RecommendationSet{}, err
	}
	var details []types.PoolDetailRecord
	if in.DetailsPath != "" {
		if err := readJSONFile(in.DetailsPath, &details); err != nil {
			return types.RecommendationSet{}, err
		}
	}

	pools := datafetcher.TransformMarkets(markets, details, now, params)
	set, err := analyzer.GetRecommendationsForPortfolio(assets, pools, posture, params)
	set.GeneratedAt = now.UTC()
	return set, err
}

func readJSONFile(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seo-insights/backend/config"
	"github.com/seo-insights/backend/logging"
	"github.com/seo-insights/backend/scoring"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "seo-insights",
	Short: "SEO Insights - search visibility and page experience scoring",
	Long: `SEO Insights scores how visible a domain is in search results for a
keyword and how fast its landing page feels to visitors. It serves an HTTP
API that produces stored reports with written advice, and can score saved
SERP and audit payloads offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnvFiles()

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Setup(cfg.LogLevel, cfg.LogJSON)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
}

// loadScoringConfig reads the weighting table named by SCORING_CONFIG, or
// returns the defaults
func loadScoringConfig() (*scoring.Config, error) {
	if cfg == nil || cfg.ScoringConfig == "" {
		return scoring.DefaultConfig(), nil
	}
	sc, err := scoring.LoadConfig(cfg.ScoringConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring config: %w", err)
	}
	return sc, nil
}

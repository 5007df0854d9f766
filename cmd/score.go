package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seo-insights/backend/audit"
	"github.com/seo-insights/backend/scoring"
)

var (
	scoreFile    string
	scoreKeyword string
	scoreDomain  string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score saved SERP or audit payloads",
}

var scoreSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Compute the search relevance breakdown of a SERP payload",
	Long: `
The search command reads a SERP provider response from a file (or stdin
when --file is "-") and prints the seven sub-scores and total for the
given keyword and domain as JSON.
`,
	RunE: runScoreSearch,
}

var scoreExperienceCmd = &cobra.Command{
	Use:   "experience",
	Short: "Compute the page experience score of an audit payload",
	Long: `
The experience command reads either a PageSpeed Insights response or a flat
metrics document ({"fcp": ..., "lcp": ...}) and prints the composite score
together with the metrics that were used.
`,
	RunE: runScoreExperience,
}

func init() {
	scoreSearchCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "SERP payload JSON file, - for stdin")
	scoreSearchCmd.Flags().StringVarP(&scoreKeyword, "keyword", "k", "", "Keyword the SERP was fetched for")
	scoreSearchCmd.Flags().StringVarP(&scoreDomain, "domain", "d", "", "Domain to score")
	_ = scoreSearchCmd.MarkFlagRequired("file")

	scoreExperienceCmd.Flags().StringVarP(&scoreFile, "file", "f", "", "Audit JSON file, - for stdin")
	_ = scoreExperienceCmd.MarkFlagRequired("file")

	scoreCmd.AddCommand(scoreSearchCmd)
	scoreCmd.AddCommand(scoreExperienceCmd)
}

func runScoreSearch(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, scoreFile)
	if err != nil {
		return err
	}
	sc, err := loadScoringConfig()
	if err != nil {
		return err
	}

	breakdown := scoring.NewSearchScorer(&sc.Search).
		Score(scoring.DecodeSearchResultSet(data), scoreKeyword, scoreDomain)
	return writeJSON(cmd.OutOrStdout(), breakdown)
}

func runScoreExperience(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, scoreFile)
	if err != nil {
		return err
	}
	sc, err := loadScoringConfig()
	if err != nil {
		return err
	}

	metrics, err := audit.ParseMetrics(data)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), scoring.NewExperienceScorer(&sc.Experience).Score(metrics))
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

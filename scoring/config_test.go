package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides keep unspecified defaults", func(t *testing.T) {
		path := filepath.Join(dir, "scoring.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
search:
  keyword_max: 15
  rank_tiers:
    - {max_rank: 1, points: 30}
    - {max_rank: 5, points: 20}
experience:
  lcp: {weight: 0.3, good: 2000, needs_improvement: 3500}
`), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 15, cfg.Search.KeywordMax)
		assert.Len(t, cfg.Search.RankTiers, 2)
		assert.Equal(t, 8, cfg.Search.KeywordTitlePoints)
		assert.Equal(t, 0.3, cfg.Experience.LCP.Weight)
		assert.Equal(t, 0.10, cfg.Experience.FCP.Weight)
	})

	t.Run("rejects inverted thresholds", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
experience:
  cls: {weight: 0.15, good: 0.5, needs_improvement: 0.25}
`), 0644))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cls")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("search: [unterminated"), 0644))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}

func TestValidateSearchConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SearchConfig)
	}{
		{"negative maximum", func(c *SearchConfig) { c.VisibilityMax = -1 }},
		{"zero top results", func(c *SearchConfig) { c.TopResults = 0 }},
		{"descending tiers", func(c *SearchConfig) {
			c.RankTiers = []RankTier{{MaxRank: 5, Points: 20}, {MaxRank: 3, Points: 25}}
		}},
		{"tier above ranking max", func(c *SearchConfig) { c.RankTiers[0].Points = 31 }},
		{"empty pagination page", func(c *SearchConfig) { c.PaginationPage = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Search)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewSearchScorerCopiesTiers(t *testing.T) {
	cfg := DefaultSearchConfig()
	scorer := NewSearchScorer(&cfg)
	cfg.RankTiers[0].Points = 0

	raw := organicPayload(map[string]map[string]any{"1": {"url": "https://acme.com/"}})
	assert.Equal(t, 30, scorer.Score(ParseSearchResultSet(raw), "", "acme.com").RankingPosition)
}

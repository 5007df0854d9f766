package scoring

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RankTier awards Points to a ranking position at or below MaxRank.
type RankTier struct {
	MaxRank int `yaml:"max_rank"`
	Points  int `yaml:"points"`
}

// SearchConfig holds the point values and caps of the search relevance scorer.
type SearchConfig struct {
	TopResults int `yaml:"top_results"` // rank cutoff for the "top 10" rules

	// Ranking Position (0-30 points)
	RankTiers      []RankTier `yaml:"rank_tiers"`
	UnrankedPoints int        `yaml:"unranked_points"` // matched, but past every tier or rank unparseable
	RankingMax     int        `yaml:"ranking_max"`

	// Keyword Relevance (0-20 points)
	KeywordTitlePoints       int `yaml:"keyword_title_points"`
	KeywordDescriptionPoints int `yaml:"keyword_description_points"`
	KeywordURLPoints         int `yaml:"keyword_url_points"`
	KeywordMax               int `yaml:"keyword_max"`

	// Rich Snippets (0-10 points)
	RichSnippetPoints int `yaml:"rich_snippet_points"`
	RichSnippetMax    int `yaml:"rich_snippet_max"`

	// URL Structure (0-10 points)
	CleanURLPoints  int `yaml:"clean_url_points"`
	URLStructureMax int `yaml:"url_structure_max"`

	// Visibility (0-10 points)
	AboveFoldPoints int `yaml:"above_fold_points"`
	VisibilityMax   int `yaml:"visibility_max"`

	// Competitor Analysis (0 or 10 points)
	CompetitorPoints int `yaml:"competitor_points"`

	// Pagination Strength (0-10 points)
	PaginationPage string `yaml:"pagination_page"`
	PaginationMax  int    `yaml:"pagination_max"`
}

// MetricRule is the weight and two-tier thresholds of one audit metric.
type MetricRule struct {
	Weight           float64 `yaml:"weight"`
	Good             float64 `yaml:"good"`
	NeedsImprovement float64 `yaml:"needs_improvement"`
}

// ExperienceConfig holds the per-metric rules of the page experience scorer.
type ExperienceConfig struct {
	FCP        MetricRule `yaml:"fcp"`
	LCP        MetricRule `yaml:"lcp"`
	CLS        MetricRule `yaml:"cls"`
	TBT        MetricRule `yaml:"tbt"`
	SpeedIndex MetricRule `yaml:"speed_index"`
	TTI        MetricRule `yaml:"tti"`

	GoodScore             float64 `yaml:"good_score"`
	NeedsImprovementScore float64 `yaml:"needs_improvement_score"`
	PoorScore             float64 `yaml:"poor_score"`
}

// Config is the complete weighting table of both scorers.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Experience ExperienceConfig `yaml:"experience"`
}

// DefaultConfig returns the production weighting table.
func DefaultConfig() *Config {
	return &Config{
		Search: DefaultSearchConfig(),
		// Weights sum to 0.80. Scores are normalized by the weights of the
		// metrics that are present, so the result still spans 0-100.
		Experience: DefaultExperienceConfig(),
	}
}

// DefaultSearchConfig returns the production search relevance table.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopResults: 10,
		RankTiers: []RankTier{
			{MaxRank: 1, Points: 30},
			{MaxRank: 3, Points: 27},
			{MaxRank: 10, Points: 25},
			{MaxRank: 15, Points: 20},
			{MaxRank: 25, Points: 15},
			{MaxRank: 35, Points: 10},
		},
		UnrankedPoints: 5,
		RankingMax:     30,

		KeywordTitlePoints:       8,
		KeywordDescriptionPoints: 8,
		KeywordURLPoints:         4,
		KeywordMax:               20,

		RichSnippetPoints: 5,
		RichSnippetMax:    10,

		CleanURLPoints:  2,
		URLStructureMax: 10,

		AboveFoldPoints: 3,
		VisibilityMax:   10,

		CompetitorPoints: 10,

		PaginationPage: "1",
		PaginationMax:  10,
	}
}

// DefaultExperienceConfig returns the production page experience table.
func DefaultExperienceConfig() ExperienceConfig {
	return ExperienceConfig{
		FCP:        MetricRule{Weight: 0.10, Good: 1800, NeedsImprovement: 3000},
		LCP:        MetricRule{Weight: 0.25, Good: 2500, NeedsImprovement: 4000},
		CLS:        MetricRule{Weight: 0.15, Good: 0.10, NeedsImprovement: 0.25},
		TBT:        MetricRule{Weight: 0.10, Good: 200, NeedsImprovement: 600},
		SpeedIndex: MetricRule{Weight: 0.10, Good: 3400, NeedsImprovement: 5800},
		TTI:        MetricRule{Weight: 0.10, Good: 3800, NeedsImprovement: 7300},

		GoodScore:             100,
		NeedsImprovementScore: 50,
		PoorScore:             0,
	}
}

// LoadConfig reads a YAML weighting table. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}

// Validate rejects tables that would break the sub-score bounds.
func (c *Config) Validate() error {
	return errors.Join(c.Search.validate(), c.Experience.validate())
}

func (s SearchConfig) validate() error {
	var errs []error
	if s.TopResults < 1 {
		errs = append(errs, fmt.Errorf("top_results must be positive, got %d", s.TopResults))
	}
	if s.PaginationPage == "" {
		errs = append(errs, errors.New("pagination_page must not be empty"))
	}

	nonNegative := map[string]int{
		"unranked_points":            s.UnrankedPoints,
		"ranking_max":                s.RankingMax,
		"keyword_title_points":       s.KeywordTitlePoints,
		"keyword_description_points": s.KeywordDescriptionPoints,
		"keyword_url_points":         s.KeywordURLPoints,
		"keyword_max":                s.KeywordMax,
		"rich_snippet_points":        s.RichSnippetPoints,
		"rich_snippet_max":           s.RichSnippetMax,
		"clean_url_points":           s.CleanURLPoints,
		"url_structure_max":          s.URLStructureMax,
		"above_fold_points":          s.AboveFoldPoints,
		"visibility_max":             s.VisibilityMax,
		"competitor_points":          s.CompetitorPoints,
		"pagination_max":             s.PaginationMax,
	}
	for name, v := range nonNegative {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}

	if s.UnrankedPoints > s.RankingMax {
		errs = append(errs, fmt.Errorf("unranked_points %d exceeds ranking_max %d", s.UnrankedPoints, s.RankingMax))
	}
	prev := 0
	for i, tier := range s.RankTiers {
		if tier.MaxRank <= prev {
			errs = append(errs, fmt.Errorf("rank_tiers[%d]: max_rank must be ascending and positive, got %d", i, tier.MaxRank))
		}
		if tier.Points < 0 || tier.Points > s.RankingMax {
			errs = append(errs, fmt.Errorf("rank_tiers[%d]: points %d outside [0, %d]", i, tier.Points, s.RankingMax))
		}
		prev = tier.MaxRank
	}
	return errors.Join(errs...)
}

func (e ExperienceConfig) validate() error {
	var errs []error
	for name, rule := range e.rules() {
		if rule.Weight <= 0 {
			errs = append(errs, fmt.Errorf("%s: weight must be positive, got %v", name, rule.Weight))
		}
		if rule.Good > rule.NeedsImprovement {
			errs = append(errs, fmt.Errorf("%s: good threshold %v above needs_improvement %v", name, rule.Good, rule.NeedsImprovement))
		}
	}
	for name, v := range map[string]float64{
		"good_score":              e.GoodScore,
		"needs_improvement_score": e.NeedsImprovementScore,
		"poor_score":              e.PoorScore,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 100], got %v", name, v))
		}
	}
	return errors.Join(errs...)
}

func (e ExperienceConfig) rules() map[string]MetricRule {
	return map[string]MetricRule{
		"fcp":         e.FCP,
		"lcp":         e.LCP,
		"cls":         e.CLS,
		"tbt":         e.TBT,
		"speed_index": e.SpeedIndex,
		"tti":         e.TTI,
	}
}

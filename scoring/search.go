package scoring

import (
	"strings"
)

// SearchScorer computes the search relevance breakdown of a domain for a
// keyword. It holds only immutable configuration and is safe for concurrent use.
type SearchScorer struct {
	config SearchConfig
}

// NewSearchScorer creates a scorer. A nil config selects DefaultSearchConfig.
func NewSearchScorer(config *SearchConfig) *SearchScorer {
	if config == nil {
		def := DefaultSearchConfig()
		config = &def
	}
	cfg := *config
	cfg.RankTiers = append([]RankTier(nil), config.RankTiers...)
	return &SearchScorer{config: cfg}
}

var defaultSearchScorer = NewSearchScorer(nil)

// ScoreSearch scores a decoded SERP response with the default table.
func ScoreSearch(raw map[string]any, keyword, domain string) SearchScoreBreakdown {
	return defaultSearchScorer.Score(ParseSearchResultSet(raw), keyword, domain)
}

// Score computes all seven sub-scores. It never fails: absent or malformed
// signals contribute zero to the affected sub-score only.
func (s *SearchScorer) Score(set SearchResultSet, keyword, domain string) SearchScoreBreakdown {
	top := s.topResults(set.Organic)

	b := SearchScoreBreakdown{
		RankingPosition:    s.rankingPosition(set.Organic, domain),
		KeywordRelevance:   s.keywordRelevance(top, keyword),
		RichSnippets:       s.richSnippets(set.Universal),
		URLStructure:       s.urlStructure(top),
		Visibility:         s.visibility(top),
		CompetitorAnalysis: s.competitorAnalysis(top, domain),
		PaginationStrength: s.paginationStrength(set.Pages),
	}
	b.Total = b.RankingPosition + b.KeywordRelevance + b.RichSnippets +
		b.URLStructure + b.Visibility + b.CompetitorAnalysis + b.PaginationStrength
	return b
}

// topResults keeps entries with a parsed rank within the top cutoff.
func (s *SearchScorer) topResults(organic []OrganicEntry) []OrganicEntry {
	top := make([]OrganicEntry, 0, s.config.TopResults)
	for _, e := range organic {
		if e.RankOK && e.Rank >= 1 && e.Rank <= s.config.TopResults {
			top = append(top, e)
		}
	}
	return top
}

func (s *SearchScorer) rankingPosition(organic []OrganicEntry, domain string) int {
	if domain == "" {
		return 0
	}
	for _, e := range organic {
		if strings.Contains(e.URL, domain) {
			return clamp(s.rankPoints(e), 0, s.config.RankingMax)
		}
	}
	return 0
}

func (s *SearchScorer) rankPoints(e OrganicEntry) int {
	if !e.RankOK || e.Rank < 1 {
		return s.config.UnrankedPoints
	}
	for _, tier := range s.config.RankTiers {
		if e.Rank <= tier.MaxRank {
			return tier.Points
		}
	}
	return s.config.UnrankedPoints
}

func (s *SearchScorer) keywordRelevance(top []OrganicEntry, keyword string) int {
	if keyword == "" {
		return 0
	}
	score := 0
	for _, e := range top {
		if containsFold(e.Title, keyword) {
			score += s.config.KeywordTitlePoints
		}
		if containsFold(e.Description, keyword) {
			score += s.config.KeywordDescriptionPoints
		}
		if containsFold(e.URL, keyword) {
			score += s.config.KeywordURLPoints
		}
	}
	return clamp(score, 0, s.config.KeywordMax)
}

func (s *SearchScorer) richSnippets(universal []UniversalEntry) int {
	score := 0
	for _, e := range universal {
		if e.RichSnippets > 0 {
			score += s.config.RichSnippetPoints
		}
	}
	return clamp(score, 0, s.config.RichSnippetMax)
}

func (s *SearchScorer) urlStructure(top []OrganicEntry) int {
	score := 0
	for _, e := range top {
		u, ok := parseResultURL(e.URL)
		if !ok {
			continue
		}
		if !strings.ContainsAny(u.Path, "?_") {
			score += s.config.CleanURLPoints
		}
	}
	return clamp(score, 0, s.config.URLStructureMax)
}

func (s *SearchScorer) visibility(top []OrganicEntry) int {
	score := 0
	for _, e := range top {
		if e.AboveTheFold {
			score += s.config.AboveFoldPoints
		}
	}
	return clamp(score, 0, s.config.VisibilityMax)
}

func (s *SearchScorer) competitorAnalysis(top []OrganicEntry, domain string) int {
	for _, e := range top {
		u, ok := parseResultURL(e.URL)
		if !ok {
			continue
		}
		if strings.ToLower(u.Hostname()) == strings.ToLower(domain) {
			return s.config.CompetitorPoints
		}
	}
	return 0
}

func (s *SearchScorer) paginationStrength(pages map[string]PageSummary) int {
	return clamp(pages[s.config.PaginationPage].Organic, 0, s.config.PaginationMax)
}

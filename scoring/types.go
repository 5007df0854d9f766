package scoring

// OrganicEntry is a single organic search result at a rank position.
type OrganicEntry struct {
	Key          string `json:"key"`
	Rank         int    `json:"rank"`
	RankOK       bool   `json:"-"` // false when Key is not an integer
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	AboveTheFold bool   `json:"above_the_fold"`
}

// UniversalEntry is a rich-result slot. RichSnippets holds the length of the
// slot's rich_snippets list.
type UniversalEntry struct {
	Slot         string `json:"slot"`
	RichSnippets int    `json:"rich_snippets"`
}

// PageSummary counts the organic results placed on one results page.
type PageSummary struct {
	Organic int `json:"organic"`
}

// SearchResultSet is the normalized view of a SERP payload for one
// (keyword, domain) pair.
type SearchResultSet struct {
	Organic   []OrganicEntry         `json:"organic"`
	Universal []UniversalEntry       `json:"universal"`
	Pages     map[string]PageSummary `json:"pages"`
}

// SearchScoreBreakdown holds the seven search relevance sub-scores and their sum.
type SearchScoreBreakdown struct {
	RankingPosition    int `json:"rankingPosition"`
	KeywordRelevance   int `json:"keywordRelevance"`
	RichSnippets       int `json:"richSnippets"`
	URLStructure       int `json:"urlStructure"`
	Visibility         int `json:"visibility"`
	CompetitorAnalysis int `json:"competitorAnalysis"`
	PaginationStrength int `json:"paginationStrength"`
	Total              int `json:"total"`
}

// PageAuditMetrics are the audit tool's metrics in its native units
// (milliseconds, except CLS). A nil field means the metric is unavailable.
type PageAuditMetrics struct {
	FCP        *float64 `json:"fcp"`
	LCP        *float64 `json:"lcp"`
	CLS        *float64 `json:"cls"`
	TBT        *float64 `json:"tbt"`
	SpeedIndex *float64 `json:"speedIndex"`
	TTI        *float64 `json:"tti"`
}

// PageScore is the composite page experience score with the metrics it was
// computed from.
type PageScore struct {
	Score   int              `json:"score"`
	Metrics PageAuditMetrics `json:"metrics"`
}

// Metric returns a pointer to v, for building PageAuditMetrics literals.
func Metric(v float64) *float64 {
	return &v
}

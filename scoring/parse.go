package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// DecodeSearchResultSet decodes a raw SERP response body. A body that is
// not a JSON object yields an empty result set.
func DecodeSearchResultSet(data []byte) SearchResultSet {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return SearchResultSet{Pages: map[string]PageSummary{}}
	}
	return ParseSearchResultSet(raw)
}

// ParseSearchResultSet normalizes a decoded SERP response of the shape
//
//	{"response": {"results": {"organic": {...}, "universal": {...}},
//	              "summary": {"pages": {"1": {"organic": 5}}}}}
//
// Missing or mistyped nodes contribute nothing.
func ParseSearchResultSet(raw map[string]any) SearchResultSet {
	response := object(raw, "response")
	results := object(response, "results")
	pages := object(object(response, "summary"), "pages")

	set := SearchResultSet{
		Organic:   parseOrganic(object(results, "organic")),
		Universal: parseUniversal(object(results, "universal")),
		Pages:     make(map[string]PageSummary, len(pages)),
	}

	for page, v := range pages {
		summary, _ := v.(map[string]any)
		count, ok := number(summary, "organic")
		if !ok {
			continue
		}
		// Bound before converting; out of range floats do not convert to int.
		count = math.Min(math.Max(math.Trunc(count), 0), math.MaxInt32)
		set.Pages[page] = PageSummary{Organic: int(count)}
	}

	return set
}

func parseOrganic(organic map[string]any) []OrganicEntry {
	entries := make([]OrganicEntry, 0, len(organic))
	for key, v := range organic {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		rank, rankOK := parseRank(key)
		entries = append(entries, OrganicEntry{
			Key:          key,
			Rank:         rank,
			RankOK:       rankOK,
			URL:          str(item, "url"),
			Title:        str(item, "title"),
			Description:  str(item, "description"),
			AboveTheFold: boolean(item, "above_the_fold"),
		})
	}

	// Numeric ranks ascending, then non-numeric keys.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.RankOK != b.RankOK {
			return a.RankOK
		}
		if a.RankOK && a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Key < b.Key
	})
	return entries
}

func parseUniversal(universal map[string]any) []UniversalEntry {
	entries := make([]UniversalEntry, 0, len(universal))
	for slot, v := range universal {
		item, _ := v.(map[string]any)
		entries = append(entries, UniversalEntry{
			Slot:         slot,
			RichSnippets: len(list(item, "rich_snippets")),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Slot < entries[j].Slot })
	return entries
}

// ParsePageAuditMetrics reads a flat metrics document such as
// {"fcp": 1200, "lcp": 2400, "cls": 0.05}. Missing, mistyped and non-finite
// values are left nil, so each one only affects its own metric.
func ParsePageAuditMetrics(raw map[string]any) PageAuditMetrics {
	return PageAuditMetrics{
		FCP:        OptionalNumber(raw, "fcp"),
		LCP:        OptionalNumber(raw, "lcp"),
		CLS:        OptionalNumber(raw, "cls"),
		TBT:        OptionalNumber(raw, "tbt"),
		SpeedIndex: OptionalNumber(raw, "speedIndex"),
		TTI:        OptionalNumber(raw, "tti"),
	}
}

// OptionalNumber returns the finite number stored under key, or nil.
func OptionalNumber(m map[string]any, key string) *float64 {
	v, ok := number(m, key)
	if !ok {
		return nil
	}
	return &v
}

package scoring

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// containsFold reports whether needle is a case-insensitive substring of
// haystack. No tokenization: "widget" matches "widgets" and "superwidget".
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// parseRank parses a SERP rank key. ok is false for non-integer keys.
func parseRank(key string) (int, bool) {
	rank, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, false
	}
	return rank, true
}

// parseResultURL parses an absolute result URL. ok is false when the value
// is not a URL with a scheme and host, and callers treat it as absent.
func parseResultURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// Accessors over decoded JSON. Each returns the zero value when the node is
// missing or has an unexpected type.

func object(v any, key string) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolean(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func number(m map[string]any, key string) (float64, bool) {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func list(m map[string]any, key string) []any {
	l, _ := m[key].([]any)
	return l
}

package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatistics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	stats := NewStatistics(path, true)

	stats.TrackVisitor("10.0.0.1")
	stats.TrackVisitor("10.0.0.2")
	stats.TrackVisitor("10.0.0.1")
	stats.TrackScore("https://www.Acme.com/pricing", 100, false)
	stats.TrackScore("acme.com", 300, true)
	stats.TrackScore("rival.io", 200, false)
	stats.TrackScore("localhost:8082", 0, false)

	t.Run("Counters", func(t *testing.T) {
		assert.Equal(t, 2, stats.GetUniqueVisitorsCount())
		assert.Equal(t, 4, stats.Requests())
		assert.InDelta(t, 25.0, stats.GetErrorRate(), 1e-9)
		assert.InDelta(t, 150.0, stats.AverageLoadTime, 1e-9)
	})

	t.Run("PopularDomains", func(t *testing.T) {
		assert.Equal(t, map[string]int{"acme.com": 2}, stats.GetPopularDomains(1))
		assert.Len(t, stats.GetPopularDomains(10), 2)
	})

	t.Run("Snapshot", func(t *testing.T) {
		snap := stats.Snapshot()
		assert.Equal(t, 4, snap["totalRequests"])
		assert.Contains(t, snap, "popularDomains")

		prod := NewStatistics(filepath.Join(t.TempDir(), "prod.json"), false)
		assert.NotContains(t, prod.Snapshot(), "popularDomains")
	})

	t.Run("Persistence", func(t *testing.T) {
		require.NoError(t, stats.Save())

		reloaded := NewStatistics(path, false)
		assert.Equal(t, 4, reloaded.Requests())
		assert.Equal(t, 2, reloaded.GetPopularDomains(5)["acme.com"])
	})
}

func TestCleanDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/a?b": "example.com",
		"example.com":                 "example.com",
		"  shop.example.com ":         "shop.example.com",
		"http://localhost:3000":       "",
		"":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanDomain(in), in)
	}
}

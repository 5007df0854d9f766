package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Statistics represents the collected request statistics
type Statistics struct {
	UniqueVisitors  map[string]time.Time `json:"uniqueVisitors"`  // IP -> Last Visit Time
	ScoreRequests   int                  `json:"scoreRequests"`   // Total number of scoring/report requests
	ErrorCount      int                  `json:"errorCount"`      // Number of failed requests
	PopularDomains  map[string]int       `json:"popularDomains"`  // Domain -> Count
	AverageLoadTime float64              `json:"averageLoadTime"` // Average handling time in milliseconds
	TotalLoadTime   float64              `json:"totalLoadTime"`
	LastPersisted   time.Time            `json:"lastPersisted"`

	path    string
	devMode bool
	mutex   sync.RWMutex
}

// NewStatistics creates statistics persisted at path and loads any previous
// snapshot. In devMode the popular domain list is exposed by Snapshot.
func NewStatistics(path string, devMode bool) *Statistics {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularDomains: make(map[string]int),
		LastPersisted:  time.Now(),
		path:           path,
		devMode:        devMode,
	}

	if err := s.Load(); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not load existing statistics")
	}
	return s
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanDomain lowercases a domain and drops any scheme, path and "www." prefix
func cleanDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")

	// Don't track local targets
	if d == "" || strings.HasPrefix(d, "localhost") || strings.HasPrefix(d, "127.0.0.1") {
		return ""
	}
	return d
}

// TrackScore records a scoring or report request
func (s *Statistics) TrackScore(domain string, loadTime float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.ScoreRequests++

	if d := cleanDomain(domain); d != "" {
		s.PopularDomains[d]++
	}

	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTime
	s.AverageLoadTime = s.TotalLoadTime / float64(s.ScoreRequests)
}

// Requests returns the number of tracked scoring requests
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ScoreRequests
}

func (s *Statistics) uniqueVisitorsSince(cutoff time.Time) int {
	count := 0
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// GetUniqueVisitorsCount returns the number of unique visitors in the last 24 hours
func (s *Statistics) GetUniqueVisitorsCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsSince(time.Now().Add(-24 * time.Hour))
}

func (s *Statistics) popularDomains(n int) map[string]int {
	type kv struct {
		domain string
		count  int
	}
	list := make([]kv, 0, len(s.PopularDomains))
	for d, c := range s.PopularDomains {
		list = append(list, kv{d, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count == list[j].count {
			return list[i].domain < list[j].domain
		}
		return list[i].count > list[j].count
	})
	if n > len(list) {
		n = len(list)
	}

	result := make(map[string]int, n)
	for _, e := range list[:n] {
		result[e.domain] = e.count
	}
	return result
}

// GetPopularDomains returns the top N most scored domains
func (s *Statistics) GetPopularDomains(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.popularDomains(n)
}

func (s *Statistics) errorRate() float64 {
	if s.ScoreRequests == 0 {
		return 0
	}
	return (float64(s.ErrorCount) / float64(s.ScoreRequests)) * 100
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRate()
}

// Save persists the statistics to the configured file
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	return nil
}

// Load reads the statistics from the configured file
func (s *Statistics) Load() error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Not an error if file doesn't exist yet
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.NewDecoder(file).Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularDomains == nil {
		s.PopularDomains = make(map[string]int)
	}
	return nil
}

// Snapshot returns the public statistics. Popular domains are only included
// in development mode.
func (s *Statistics) Snapshot() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]any{
		"uniqueVisitors24h": s.uniqueVisitorsSince(time.Now().Add(-24 * time.Hour)),
		"totalRequests":     s.ScoreRequests,
		"errorRate":         s.errorRate(),
		"averageLoadTime":   s.AverageLoadTime,
	}
	if s.devMode {
		out["popularDomains"] = s.popularDomains(5)
	}
	return out
}

package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seo-insights/backend/advice"
	"github.com/seo-insights/backend/logging"
	"github.com/seo-insights/backend/metrics"
	"github.com/seo-insights/backend/onpage"
	"github.com/seo-insights/backend/scoring"
	"github.com/seo-insights/backend/stats"
)

var (
	// ErrInvalidRequest is returned when a report request lacks a user or domain
	ErrInvalidRequest = errors.New("invalid report request")
	// ErrStorage wraps failures of the report store
	ErrStorage = errors.New("report storage failed")
)

// SerpFetcher returns the raw SERP payload for a keyword and domain
type SerpFetcher interface {
	Fetch(ctx context.Context, keyword, domain string) ([]byte, error)
}

// Auditor returns the performance metrics of a page
type Auditor interface {
	Audit(ctx context.Context, pageURL string) (scoring.PageAuditMetrics, error)
}

// Snapshotter inspects the on-page state of a page
type Snapshotter interface {
	Snapshot(ctx context.Context, pageURL string) (onpage.Snapshot, error)
}

// Options wires a Service. Pages, Advisor, Metrics and Stats are optional.
type Options struct {
	Serp      SerpFetcher
	Auditor   Auditor
	Pages     Snapshotter
	Advisor   advice.Generator
	Store     Store
	Scoring   *scoring.Config
	Metrics   *metrics.Registry
	Stats     *stats.Storage
	CacheTTL  time.Duration
	CacheSize int
}

// Service generates, scores and persists reports
type Service struct {
	serp       SerpFetcher
	auditor    Auditor
	pages      Snapshotter
	advisor    advice.Generator
	store      Store
	search     *scoring.SearchScorer
	experience *scoring.ExperienceScorer
	metrics    *metrics.Registry
	stats      *stats.Storage

	serpCache  *Cache[[]byte]
	auditCache *Cache[scoring.PageAuditMetrics]

	now func() time.Time
}

func NewService(opts Options) *Service {
	cfg := opts.Scoring
	if cfg == nil {
		cfg = scoring.DefaultConfig()
	}
	if opts.Advisor == nil {
		opts.Advisor = advice.Noop{}
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}

	s := &Service{
		serp:       opts.Serp,
		auditor:    opts.Auditor,
		pages:      opts.Pages,
		advisor:    opts.Advisor,
		store:      opts.Store,
		search:     scoring.NewSearchScorer(&cfg.Search),
		experience: scoring.NewExperienceScorer(&cfg.Experience),
		metrics:    opts.Metrics,
		stats:      opts.Stats,
		now:        time.Now,
	}

	if opts.CacheTTL > 0 {
		s.serpCache = NewCache[[]byte](opts.CacheTTL, opts.CacheSize)
		s.auditCache = NewCache[scoring.PageAuditMetrics](opts.CacheTTL, opts.CacheSize)
	}

	return s
}

// Close stops the cache cleanup loops
func (s *Service) Close() {
	s.serpCache.Close()
	s.auditCache.Close()
}

// Generate fetches SERP, audit and on-page data concurrently, scores them,
// asks for advice and stores the result as the user's report for the domain.
func (s *Service) Generate(ctx context.Context, req Request) (Report, error) {
	r, err := s.generate(ctx, req)
	s.metrics.ObserveReport(err)
	return r, err
}

func (s *Service) generate(ctx context.Context, req Request) (Report, error) {
	domain := NormalizeDomain(req.Domain)
	keyword := strings.TrimSpace(req.Keyword)
	if req.UserID == "" {
		return Report{}, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	if domain == "" {
		return Report{}, fmt.Errorf("%w: missing domain", ErrInvalidRequest)
	}

	logger := logging.FromContext(ctx).With().
		Str("domain", domain).
		Str("keyword", keyword).
		Logger()
	pageURL := "https://" + domain + "/"

	var (
		serpBody []byte
		audited  scoring.PageAuditMetrics
		snapshot *onpage.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := s.fetchSerp(gctx, keyword, domain)
		if err != nil {
			return fmt.Errorf("serp fetch failed: %w", err)
		}
		serpBody = body
		return nil
	})
	g.Go(func() error {
		m, err := s.audit(gctx, pageURL)
		if err != nil {
			return fmt.Errorf("page audit failed: %w", err)
		}
		audited = m
		return nil
	})
	if s.pages != nil {
		g.Go(func() error {
			snap, err := s.pages.Snapshot(gctx, pageURL)
			if err != nil {
				logger.Warn().Err(err).Msg("On-page snapshot failed, continuing without it")
				return nil
			}
			snapshot = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	search := s.search.Score(scoring.DecodeSearchResultSet(serpBody), keyword, domain)
	experience := s.experience.Score(audited)
	s.metrics.ObserveScore(metrics.ScorerSearch, search.Total)
	s.metrics.ObserveScore(metrics.ScorerExperience, experience.Score)
	s.count(stats.Delta{SearchScored: 1, ExperienceScored: 1})

	var issues []string
	if snapshot != nil {
		issues = snapshot.Issues()
	}

	text, err := s.advisor.Advise(ctx, advice.Input{
		Keyword:    keyword,
		Domain:     domain,
		Search:     search,
		Experience: experience,
		Issues:     issues,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Advice generation failed, storing report without it")
		text = ""
	}

	r := Report{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Domain:     domain,
		Keyword:    keyword,
		Search:     search,
		Experience: experience,
		OnPage:     snapshot,
		Issues:     issues,
		Advice:     text,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.store.Save(ctx, r); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	logger.Info().
		Str("report_id", r.ID).
		Int("search_total", search.Total).
		Int("experience_score", experience.Score).
		Msg("Report generated")

	return r, nil
}

func (s *Service) fetchSerp(ctx context.Context, keyword, domain string) ([]byte, error) {
	key := cacheKey("serp", keyword, domain)
	if body, ok := s.serpCache.Get(key); ok {
		s.count(stats.Delta{SerpCacheHits: 1})
		return body, nil
	}
	s.count(stats.Delta{SerpCacheMisses: 1})

	start := time.Now()
	body, err := s.serp.Fetch(ctx, keyword, domain)
	s.metrics.ObserveUpstream("serp", start, err)
	if err != nil {
		return nil, err
	}

	s.serpCache.Set(key, body)
	return body, nil
}

func (s *Service) audit(ctx context.Context, pageURL string) (scoring.PageAuditMetrics, error) {
	key := cacheKey("audit", pageURL)
	if m, ok := s.auditCache.Get(key); ok {
		s.count(stats.Delta{AuditCacheHits: 1})
		return m, nil
	}
	s.count(stats.Delta{AuditCacheMisses: 1})

	start := time.Now()
	m, err := s.auditor.Audit(ctx, pageURL)
	s.metrics.ObserveUpstream("audit", start, err)
	if err != nil {
		return scoring.PageAuditMetrics{}, err
	}

	s.auditCache.Set(key, m)
	return m, nil
}

func (s *Service) count(d stats.Delta) {
	if s.stats != nil {
		s.stats.Increment(d)
	}
}

// Get returns the stored report of a user for a domain
func (s *Service) Get(ctx context.Context, userID, domain string) (Report, error) {
	return s.store.Get(ctx, userID, NormalizeDomain(domain))
}

// List returns all reports of a user, newest first
func (s *Service) List(ctx context.Context, userID string) ([]Report, error) {
	return s.store.List(ctx, userID)
}

// Delete removes the stored report of a user for a domain
func (s *Service) Delete(ctx context.Context, userID, domain string) error {
	return s.store.Delete(ctx, userID, NormalizeDomain(domain))
}

package serp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seo-insights/backend/scoring"
	"github.com/seo-insights/backend/upstream"
)

// Client fetches search results pages from the SERP data provider
type Client struct {
	endpoint string
	apiKey   string
	engine   string
	http     *http.Client
	guard    *upstream.Guard
}

// Options configures a Client
type Options struct {
	Endpoint string
	APIKey   string
	Engine   string // search engine/region code, e.g. "g_us"
	RPS      float64
	Timeout  time.Duration
}

// NewClient creates a SERP client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		engine:   opts.Engine,
		http:     &http.Client{Timeout: opts.Timeout},
		guard:    upstream.NewGuard("serp", opts.RPS),
	}
}

// Fetch returns the raw results payload for keyword, annotated for domain
func (c *Client) Fetch(ctx context.Context, keyword, domain string) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid SERP endpoint: %w", err)
	}

	q := u.Query()
	q.Set("keyword", keyword)
	q.Set("domain", domain)
	if c.engine != "" {
		q.Set("se", c.engine)
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	body, err := c.guard.Get(ctx, c.http, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SERP for %q: %w", keyword, err)
	}
	return body, nil
}

// FetchResultSet fetches and normalizes the results page
func (c *Client) FetchResultSet(ctx context.Context, keyword, domain string) (scoring.SearchResultSet, error) {
	body, err := c.Fetch(ctx, keyword, domain)
	if err != nil {
		return scoring.SearchResultSet{}, err
	}
	return scoring.DecodeSearchResultSet(body), nil
}

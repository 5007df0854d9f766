package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seo-insights/backend/scoring"
	"github.com/seo-insights/backend/upstream"
)

// Lighthouse audit ids of the scored metrics
const (
	auditFCP        = "first-contentful-paint"
	auditLCP        = "largest-contentful-paint"
	auditCLS        = "cumulative-layout-shift"
	auditTBT        = "total-blocking-time"
	auditSpeedIndex = "speed-index"
	auditTTI        = "interactive"
)

// ErrAuditFailed is returned when the auditor ran but could not audit the page
var ErrAuditFailed = errors.New("page audit failed")

// Client runs page performance audits through the PageSpeed Insights API
type Client struct {
	endpoint string
	apiKey   string
	strategy string
	http     *http.Client
	guard    *upstream.Guard
}

// Options configures a Client
type Options struct {
	Endpoint string
	APIKey   string
	Strategy string // "mobile" or "desktop"
	RPS      float64
	Timeout  time.Duration
}

// NewClient creates an audit client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Strategy == "" {
		opts.Strategy = "mobile"
	}
	return &Client{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		strategy: opts.Strategy,
		http:     &http.Client{Timeout: opts.Timeout},
		guard:    upstream.NewGuard("audit", opts.RPS, upstream.WithCallerFault(targetPageFailure)),
	}
}

// targetPageFailure reports whether PSI answered 500 because Lighthouse could
// not load the audited page, as opposed to PSI itself failing.
func targetPageFailure(e *upstream.StatusError) bool {
	return strings.Contains(e.Body, "Lighthouse returned error")
}

// Audit runs a performance audit of pageURL and extracts the scored metrics
func (c *Client) Audit(ctx context.Context, pageURL string) (scoring.PageAuditMetrics, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return scoring.PageAuditMetrics{}, fmt.Errorf("invalid audit endpoint: %w", err)
	}

	q := u.Query()
	q.Set("url", pageURL)
	q.Set("strategy", c.strategy)
	q.Set("category", "performance")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	body, err := c.guard.Get(ctx, c.http, u.String(), nil)
	if err != nil {
		return scoring.PageAuditMetrics{}, fmt.Errorf("failed to audit %s: %w", pageURL, err)
	}

	metrics, err := ParseMetrics(body)
	if err != nil {
		return scoring.PageAuditMetrics{}, fmt.Errorf("failed to audit %s: %w", pageURL, err)
	}
	return metrics, nil
}

// ParseMetrics extracts audit metrics from either a PageSpeed Insights
// response or a flat PageAuditMetrics document. Audits that are missing,
// mistyped or not finite are left nil. Only a body that is not a JSON
// object is an error.
func ParseMetrics(data []byte) (scoring.PageAuditMetrics, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return scoring.PageAuditMetrics{}, fmt.Errorf("failed to decode audit response: %w", err)
	}

	lr, ok := raw["lighthouseResult"].(map[string]any)
	if !ok {
		return scoring.ParsePageAuditMetrics(raw), nil
	}

	if runtimeErr, ok := lr["runtimeError"].(map[string]any); ok {
		code, _ := runtimeErr["code"].(string)
		if code != "" && code != "NO_ERROR" {
			message, _ := runtimeErr["message"].(string)
			return scoring.PageAuditMetrics{}, fmt.Errorf("%w: %s: %s", ErrAuditFailed, code, message)
		}
	}

	audits, _ := lr["audits"].(map[string]any)
	numericValue := func(id string) *float64 {
		a, _ := audits[id].(map[string]any)
		return scoring.OptionalNumber(a, "numericValue")
	}

	return scoring.PageAuditMetrics{
		FCP:        numericValue(auditFCP),
		LCP:        numericValue(auditLCP),
		CLS:        numericValue(auditCLS),
		TBT:        numericValue(auditTBT),
		SpeedIndex: numericValue(auditSpeedIndex),
		TTI:        numericValue(auditTTI),
	}, nil
}

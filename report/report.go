package report

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/seo-insights/backend/onpage"
	"github.com/seo-insights/backend/scoring"
)

// ErrNotFound is returned when no report is stored for a user and domain
var ErrNotFound = errors.New("report not found")

// Report is one scored snapshot of a domain for a keyword
type Report struct {
	ID         string                       `json:"id"`
	UserID     string                       `json:"userId"`
	Domain     string                       `json:"domain"`
	Keyword    string                       `json:"keyword"`
	Search     scoring.SearchScoreBreakdown `json:"search"`
	Experience scoring.PageScore            `json:"experience"`
	OnPage     *onpage.Snapshot             `json:"onPage,omitempty"`
	Issues     []string                     `json:"issues,omitempty"`
	Advice     string                       `json:"advice,omitempty"`
	CreatedAt  time.Time                    `json:"createdAt"`
}

// Request asks for a new report
type Request struct {
	UserID  string `json:"-"`
	Domain  string `json:"domain" binding:"required"`
	Keyword string `json:"keyword" binding:"required"`
}

// Store persists the latest report per user and domain
type Store interface {
	Save(ctx context.Context, r Report) error
	Get(ctx context.Context, userID, domain string) (Report, error)
	List(ctx context.Context, userID string) ([]Report, error)
	Delete(ctx context.Context, userID, domain string) error
}

// NormalizeDomain strips scheme, port, path and case from a user supplied
// domain, leaving the bare hostname results are matched against.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if host, _, err := net.SplitHostPort(d); err == nil {
		d = host
	}
	return d
}

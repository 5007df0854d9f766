package onpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "SEOInsights/1.0"

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Snapshotter fetches and inspects landing pages
type Snapshotter struct {
	client *http.Client
}

// NewSnapshotter creates a Snapshotter with a pooled HTTP client
func NewSnapshotter(timeout time.Duration) *Snapshotter {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Snapshotter{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Snapshot fetches pageURL and extracts its on-page signals
func (s *Snapshotter) Snapshot(ctx context.Context, pageURL string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return Snapshot{}, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, 10<<20)); err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	pageSize := buf.Len()
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.Atoi(contentLength); err == nil && size > 0 {
			pageSize = size
		}
	}

	snap, err := Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	snap.URL = pageURL
	snap.PageSize = pageSize
	return snap, nil
}

// Parse extracts on-page signals from an HTML document
func Parse(r io.Reader) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{H1Text: make([]string, 0, 2)}

	snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
	snap.TitleLength = len(snap.Title)

	snap.MetaDescription = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	snap.DescriptionLen = len(snap.MetaDescription)

	doc.Find(`meta[name="viewport"]`).Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(strings.ToLower(s.AttrOr("content", "")), "width=device-width") {
			snap.MobileOptimized = true
		}
	})

	snap.H1Count = doc.Find("h1").Length()
	snap.H2Count = doc.Find("h2").Length()
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		snap.H1Text = append(snap.H1Text, strings.TrimSpace(s.Text()))
	})

	body := doc.Find("body")
	body.Find("script,noscript,style").Remove()
	snap.WordCount = len(strings.Fields(body.Text()))

	images := doc.Find("img")
	snap.TotalImages = images.Length()
	images.Each(func(_ int, s *goquery.Selection) {
		if _, exists := s.Attr("alt"); exists {
			snap.ImagesWithAlt++
		}
	})

	return snap, nil
}

// Issues lists on-page problems worth mentioning alongside the scores
func (s Snapshot) Issues() []string {
	var issues []string

	// Title
	if s.TitleLength == 0 {
		issues = append(issues, "Add a title tag to your page")
	} else if s.TitleLength < 30 {
		issues = append(issues, "Title tag is too short (should be 30-60 characters)")
	} else if s.TitleLength > 60 {
		issues = append(issues, "Title tag is too long (should be 30-60 characters)")
	}

	// Meta description
	if s.DescriptionLen == 0 {
		issues = append(issues, "Add a meta description")
	} else if s.DescriptionLen < 120 {
		issues = append(issues, "Meta description is too short (should be 120-160 characters)")
	} else if s.DescriptionLen > 160 {
		issues = append(issues, "Meta description is too long (should be 120-160 characters)")
	}

	// Headings
	if s.H1Count == 0 {
		issues = append(issues, "Add an H1 heading")
	} else if s.H1Count > 1 {
		issues = append(issues, "Multiple H1 headings found - consider using only one")
	}

	// Content
	if s.WordCount < 300 {
		issues = append(issues, "Add more content (aim for at least 300 words)")
	}
	if s.TotalImages > 0 && s.ImagesWithAlt < s.TotalImages {
		issues = append(issues, "Add alt text to all images")
	}

	if !s.MobileOptimized {
		issues = append(issues, "Add a proper viewport meta tag for mobile optimization")
	}

	return issues
}

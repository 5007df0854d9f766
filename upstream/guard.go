package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUpstream wraps every non-2xx upstream response
var ErrUpstream = errors.New("upstream request failed")

// maxBodySize caps upstream response bodies (PSI responses run to a few MB)
const maxBodySize = 16 << 20

// StatusError carries the status of a failed upstream response
type StatusError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// Guard rate limits and circuit-breaks calls to one upstream API
type Guard struct {
	name        string
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	callerFault func(*StatusError) bool
}

// Option customises a Guard
type Option func(*Guard)

// WithCallerFault marks server error responses that are caused by the
// request itself (for example an unreachable page handed to an auditor).
// Such responses are returned as errors but do not count against the breaker.
func WithCallerFault(fn func(*StatusError) bool) Option {
	return func(g *Guard) {
		g.callerFault = fn
	}
}

// NewGuard creates a guard allowing rps requests per second. The breaker
// opens after 3 consecutive failures, or above 5% failures once 20 requests
// were seen in the interval. Only transport errors, 429 and 5xx responses
// are failures.
func NewGuard(name string, rps float64, opts ...Option) *Guard {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	g := &Guard{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
	for _, opt := range opts {
		opt(g)
	}

	st := gobreaker.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	st.IsSuccessful = g.healthy

	g.breaker = gobreaker.NewCircuitBreaker(st)
	return g
}

// healthy reports whether err says nothing bad about the upstream itself
func (g *Guard) healthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	switch code := statusErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return false
	case code >= 400 && code < 500:
		return true
	case code >= 500:
		return g.callerFault != nil && g.callerFault(statusErr)
	default:
		return false
	}
}

// Name returns the upstream name
func (g *Guard) Name() string { return g.name }

// Get performs a guarded GET of rawURL and returns the response body.
func (g *Guard) Get(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", g.name, err)
	}

	body, err := g.breaker.Execute(func() (any, error) {
		return g.get(ctx, client, rawURL, header)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (g *Guard) get(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", g.name, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", g.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", g.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{Upstream: g.name, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

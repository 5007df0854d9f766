package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-insights/backend/scoring"
)

const psiResponse = `{
	"id": "https://acme.com/",
	"lighthouseResult": {
		"audits": {
			"first-contentful-paint": {"id": "first-contentful-paint", "numericValue": 1000.5},
			"largest-contentful-paint": {"id": "largest-contentful-paint", "numericValue": 3000},
			"cumulative-layout-shift": {"id": "cumulative-layout-shift", "numericValue": 0.02},
			"total-blocking-time": {"id": "total-blocking-time", "numericValue": 150},
			"speed-index": {"id": "speed-index"},
			"unused-javascript": {"numericValue": 12}
		}
	}
}`

func TestAudit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "https://acme.com/", q.Get("url"))
		assert.Equal(t, "desktop", q.Get("strategy"))
		assert.Equal(t, "performance", q.Get("category"))
		assert.Equal(t, "psi-key", q.Get("key"))
		w.Write([]byte(psiResponse))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, APIKey: "psi-key", Strategy: "desktop", RPS: 100})
	metrics, err := c.Audit(context.Background(), "https://acme.com/")
	require.NoError(t, err)

	require.NotNil(t, metrics.FCP)
	assert.Equal(t, 1000.5, *metrics.FCP)
	assert.Equal(t, 3000.0, *metrics.LCP)
	assert.Equal(t, 0.02, *metrics.CLS)
	assert.Equal(t, 150.0, *metrics.TBT)
	assert.Nil(t, metrics.SpeedIndex, "audit without numericValue is unavailable")
	assert.Nil(t, metrics.TTI, "missing audit is unavailable")

	// FCP 100*0.10 + LCP 50*0.25 + CLS 100*0.15 + TBT 100*0.10 = 47.5 over 0.60
	assert.Equal(t, 79, scoring.ScoreExperience(metrics))
}

func TestAuditRuntimeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"lighthouseResult": {"runtimeError": {"code": "FAILED_DOCUMENT_REQUEST", "message": "unreachable"}, "audits": {}}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{Endpoint: srv.URL, RPS: 100}).Audit(context.Background(), "https://down.example/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuditFailed))
}

func TestAuditUnreachablePageKeepsAuditorAvailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("url") == "https://down.example/" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"code": 500, "message": "Lighthouse returned error: FAILED_DOCUMENT_REQUEST. Lighthouse was unable to reliably load the page you requested."}}`))
			return
		}
		w.Write([]byte(psiResponse))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, RPS: 100})
	for i := 0; i < 4; i++ {
		_, err := c.Audit(context.Background(), "https://down.example/")
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}

	metrics, err := c.Audit(context.Background(), "https://acme.com/")
	require.NoError(t, err)
	assert.NotNil(t, metrics.FCP)
	assert.Equal(t, int32(5), calls.Load())
}

func TestParseMetricsFlat(t *testing.T) {
	metrics, err := ParseMetrics([]byte(`{"fcp": 1000, "lcp": null, "tti": 9000}`))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, *metrics.FCP)
	assert.Nil(t, metrics.LCP)
	assert.Equal(t, 9000.0, *metrics.TTI)
}

func TestParseMetricsMistypedFields(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		metrics, err := ParseMetrics([]byte(`{"fcp": 1000, "lcp": "n/a", "cls": {"value": 0.1}, "tbt": true, "speedIndex": 3000}`))
		require.NoError(t, err)

		require.NotNil(t, metrics.FCP)
		assert.Equal(t, 1000.0, *metrics.FCP)
		assert.Nil(t, metrics.LCP)
		assert.Nil(t, metrics.CLS)
		assert.Nil(t, metrics.TBT)
		assert.Equal(t, 3000.0, *metrics.SpeedIndex)
		assert.Equal(t, scoring.ScoreExperience(scoring.PageAuditMetrics{
			FCP:        scoring.Metric(1000),
			SpeedIndex: scoring.Metric(3000),
		}), scoring.ScoreExperience(metrics))
	})

	t.Run("pagespeed", func(t *testing.T) {
		metrics, err := ParseMetrics([]byte(`{"lighthouseResult": {"audits": {
			"first-contentful-paint": {"numericValue": "fast"},
			"largest-contentful-paint": {"numericValue": 2000},
			"cumulative-layout-shift": "broken",
			"interactive": {"numericValue": 1e400}
		}}}`))
		require.NoError(t, err)

		assert.Nil(t, metrics.FCP)
		require.NotNil(t, metrics.LCP)
		assert.Equal(t, 2000.0, *metrics.LCP)
		assert.Nil(t, metrics.CLS)
		assert.Nil(t, metrics.TTI)
	})

	t.Run("mistyped runtime error is ignored", func(t *testing.T) {
		metrics, err := ParseMetrics([]byte(`{"lighthouseResult": {"runtimeError": {"code": 42}, "audits": {
			"total-blocking-time": {"numericValue": 100}
		}}}`))
		require.NoError(t, err)
		assert.Equal(t, 100.0, *metrics.TBT)
	})
}

func TestParseMetricsInvalid(t *testing.T) {
	for _, body := range []string{`<html>`, `[1, 2]`, `"fcp"`} {
		_, err := ParseMetrics([]byte(body))
		assert.Error(t, err, body)
	}
}

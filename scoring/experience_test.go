package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreExperience(t *testing.T) {
	tests := []struct {
		name    string
		metrics PageAuditMetrics
		want    int
	}{
		{
			name:    "only fcp present",
			metrics: PageAuditMetrics{FCP: Metric(1000)},
			want:    100,
		},
		{
			name:    "no metrics",
			metrics: PageAuditMetrics{},
			want:    0,
		},
		{
			name: "all good",
			metrics: PageAuditMetrics{
				FCP: Metric(900), LCP: Metric(1200), CLS: Metric(0.01),
				TBT: Metric(50), SpeedIndex: Metric(1500), TTI: Metric(2000),
			},
			want: 100,
		},
		{
			name: "all poor",
			metrics: PageAuditMetrics{
				FCP: Metric(9000), LCP: Metric(9000), CLS: Metric(0.9),
				TBT: Metric(2000), SpeedIndex: Metric(9000), TTI: Metric(20000),
			},
			want: 0,
		},
		{
			name:    "fcp good, lcp needs improvement",
			metrics: PageAuditMetrics{FCP: Metric(1000), LCP: Metric(3000)},
			want:    64, // (100*0.10 + 50*0.25) / 0.35
		},
		{
			name:    "poor cls drags the average",
			metrics: PageAuditMetrics{FCP: Metric(1000), LCP: Metric(3000), CLS: Metric(0.3)},
			want:    45, // 22.5 / 0.50
		},
		{
			name: "mixed, all present",
			metrics: PageAuditMetrics{
				FCP: Metric(1000), LCP: Metric(3000), CLS: Metric(0.3),
				TBT: Metric(300), SpeedIndex: Metric(3000), TTI: Metric(8000),
			},
			want: 47, // 37.5 / 0.80
		},
		{
			name:    "non-finite values are unavailable",
			metrics: PageAuditMetrics{FCP: Metric(math.NaN()), TBT: Metric(math.Inf(1)), CLS: Metric(0.2)},
			want:    50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreExperience(tt.metrics))
		})
	}
}

func TestExperienceThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		metrics PageAuditMetrics
		want    int
	}{
		{"lcp at good threshold", PageAuditMetrics{LCP: Metric(2500)}, 100},
		{"lcp just above good", PageAuditMetrics{LCP: Metric(2501)}, 50},
		{"lcp at needs-improvement threshold", PageAuditMetrics{LCP: Metric(4000)}, 50},
		{"lcp above needs-improvement", PageAuditMetrics{LCP: Metric(4000.5)}, 0},
		{"cls at good threshold", PageAuditMetrics{CLS: Metric(0.10)}, 100},
		{"cls at needs-improvement threshold", PageAuditMetrics{CLS: Metric(0.25)}, 50},
		{"tbt at needs-improvement threshold", PageAuditMetrics{TBT: Metric(600)}, 50},
		{"speed index at good threshold", PageAuditMetrics{SpeedIndex: Metric(3400)}, 100},
		{"tti above needs-improvement", PageAuditMetrics{TTI: Metric(7301)}, 0},
		{"fcp at needs-improvement threshold", PageAuditMetrics{FCP: Metric(3000)}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreExperience(tt.metrics))
		})
	}
}

func TestExperienceScoreEchoesMetrics(t *testing.T) {
	metrics := PageAuditMetrics{FCP: Metric(1000), CLS: Metric(0.05)}
	got := NewExperienceScorer(nil).Score(metrics)

	assert.Equal(t, 100, got.Score)
	assert.Same(t, metrics.FCP, got.Metrics.FCP)
	assert.Nil(t, got.Metrics.LCP)
}

func TestDefaultExperienceWeights(t *testing.T) {
	cfg := DefaultExperienceConfig()
	sum := 0.0
	for _, rule := range cfg.rules() {
		sum += rule.Weight
	}
	assert.InDelta(t, 0.80, sum, 1e-9)
}

func TestCustomExperienceConfig(t *testing.T) {
	cfg := DefaultExperienceConfig()
	cfg.NeedsImprovementScore = 60

	got := NewExperienceScorer(&cfg).Score(PageAuditMetrics{TBT: Metric(400)})
	assert.Equal(t, 60, got.Score)
}

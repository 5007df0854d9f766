package scoring

import (
	"math"
)

// ExperienceScorer computes the composite 0-100 page experience score from
// audit metrics. It is safe for concurrent use.
type ExperienceScorer struct {
	config ExperienceConfig
}

// NewExperienceScorer creates a scorer. A nil config selects
// DefaultExperienceConfig.
func NewExperienceScorer(config *ExperienceConfig) *ExperienceScorer {
	if config == nil {
		def := DefaultExperienceConfig()
		config = &def
	}
	return &ExperienceScorer{config: *config}
}

var defaultExperienceScorer = NewExperienceScorer(nil)

// ScoreExperience scores metrics with the default table.
func ScoreExperience(metrics PageAuditMetrics) int {
	return defaultExperienceScorer.Score(metrics).Score
}

// Score returns the weighted average of the present metrics' tier scores.
// Absent metrics are left out of both the numerator and the denominator;
// with no metric present the score is 0.
func (e *ExperienceScorer) Score(metrics PageAuditMetrics) PageScore {
	inputs := []struct {
		value *float64
		rule  MetricRule
	}{
		{metrics.FCP, e.config.FCP},
		{metrics.LCP, e.config.LCP},
		{metrics.CLS, e.config.CLS},
		{metrics.TBT, e.config.TBT},
		{metrics.SpeedIndex, e.config.SpeedIndex},
		{metrics.TTI, e.config.TTI},
	}

	var weighted, totalWeight float64
	for _, in := range inputs {
		if in.value == nil || math.IsNaN(*in.value) || math.IsInf(*in.value, 0) {
			continue
		}
		weighted += e.tierScore(*in.value, in.rule) * in.rule.Weight
		totalWeight += in.rule.Weight
	}

	result := PageScore{Metrics: metrics}
	if totalWeight == 0 {
		return result
	}
	result.Score = clamp(int(math.Round(weighted/totalWeight)), 0, 100)
	return result
}

func (e *ExperienceScorer) tierScore(value float64, rule MetricRule) float64 {
	switch {
	case value <= rule.Good:
		return e.config.GoodScore
	case value <= rule.NeedsImprovement:
		return e.config.NeedsImprovementScore
	default:
		return e.config.PoorScore
	}
}

package analyzer

import (
	"strings"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// Combine reduces metrics to a QualityResult: weighted mean score, routing
// flag, recommendation band and one "Poor <name>" issue per poor metric in
// input order.
func Combine(metrics []QualityMetric) QualityResult {
	var weightedSum, totalWeight float64
	for _, m := range metrics {
		weightedSum += m.Score * m.Weight
		totalWeight += m.Weight
	}

	overall := 0.0
	if totalWeight != 0 {
		overall = clamp01(weightedSum / totalWeight)
	}

	issues := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if m.Status == models.StatusPoor {
			issues = append(issues, "Poor "+strings.ToLower(m.Name))
		}
	}

	out := make([]QualityMetric, len(metrics))
	copy(out, metrics)

	return QualityResult{
		OverallScore:           overall,
		ShouldUseAlternatePath: overall < AlternatePathThreshold,
		Recommendation:         recommend(overall),
		Issues:                 issues,
		Metrics:                out,
	}
}

func recommend(overall float64) string {
	for _, b := range recommendationBands {
		if overall >= b.Min {
			return b.Message
		}
	}
	return poorRecommendation
}

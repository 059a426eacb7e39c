package analyzer

import "github.com/anime-shed/receipt-inspector-go/pkg/models"

// band is one row of an ordered classification table. A value matches when
// it is above Min, or equal to Min if Inclusive is set.
type band struct {
	Min       float64
	Inclusive bool
	Score     float64
	Status    QualityStatus
}

func (b band) matches(v float64) bool {
	if b.Inclusive {
		return v >= b.Min
	}
	return v > b.Min
}

// bandTable is evaluated top-down; the first matching row wins and the
// fallback applies when nothing matches. Rows must not be reordered.
type bandTable struct {
	rows     []band
	fallback band
}

func (t bandTable) classify(v float64) band {
	for _, row := range t.rows {
		if row.matches(v) {
			return row
		}
	}
	return t.fallback
}

// megapixels
var resolutionBands = bandTable{
	rows: []band{
		{Min: 2.0, Inclusive: true, Score: 1.0, Status: models.StatusExcellent},
		{Min: 1.0, Inclusive: true, Score: 0.8, Status: models.StatusGood},
		{Min: 0.5, Inclusive: true, Score: 0.6, Status: models.StatusAcceptable},
	},
	fallback: band{Score: 0.3, Status: models.StatusPoor},
}

// Laplacian variance on an 8-bit luma scale
var sharpnessBands = bandTable{
	rows: []band{
		{Min: 1000, Score: 1.0, Status: models.StatusExcellent},
		{Min: 500, Score: 0.8, Status: models.StatusGood},
		{Min: 200, Score: 0.6, Status: models.StatusAcceptable},
	},
	fallback: band{Score: 0.3, Status: models.StatusPoor},
}

// Only the Good row is exclusive: one "Very small image" penalty (score
// 0.6) reads Acceptable, while a lone aspect penalty (0.8) stays Excellent.
var readabilityBands = bandTable{
	rows: []band{
		{Min: 0.8, Inclusive: true, Score: 1.0, Status: models.StatusExcellent},
		{Min: 0.6, Status: models.StatusGood},
		{Min: 0.4, Inclusive: true, Status: models.StatusAcceptable},
	},
	fallback: band{Status: models.StatusPoor},
}

// brightnessBand is a closed interval around the optimal 0.3-0.7 range
type brightnessBand struct {
	Low, High float64
	Score     float64
	Status    QualityStatus
	Label     string
}

var brightnessBands = []brightnessBand{
	{Low: 0.3, High: 0.7, Score: 1.0, Status: models.StatusExcellent, Label: "Optimal"},
	{Low: 0.2, High: 0.8, Score: 0.7, Status: models.StatusGood, Label: "Good"},
	{Low: 0.1, High: 0.9, Score: 0.5, Status: models.StatusAcceptable, Label: "Acceptable"},
}

const brightnessPoorScore = 0.2

// recommendation bands on the overall score
var recommendationBands = []struct {
	Min     float64
	Message string
}{
	{0.8, "Image quality is excellent for on-device OCR"},
	{0.6, "Image quality is good for on-device OCR"},
	{0.4, "Image quality is marginal; consider alternate extraction"},
}

const poorRecommendation = "Image quality is poor; alternate extraction strongly recommended"

package analyzer

import (
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// QualityResult and QualityMetric are aliases to the shared models so
// callers outside the analyzer never need to import both packages.
type QualityResult = models.QualityResult
type QualityMetric = models.QualityMetric
type QualityStatus = models.QualityStatus

// Metric names, in evaluation order
const (
	MetricResolution  = "Resolution"
	MetricSharpness   = "Sharpness"
	MetricBrightness  = "Brightness/Contrast"
	MetricReadability = "Text Readability"
)

// Metric weights. They need not sum to 1; Combine normalizes.
const (
	WeightResolution  = 0.25
	WeightSharpness   = 0.30
	WeightBrightness  = 0.25
	WeightReadability = 0.20
)

// AlternatePathThreshold is the overall score below which an image is
// routed away from on-device OCR.
const AlternatePathThreshold = 0.6

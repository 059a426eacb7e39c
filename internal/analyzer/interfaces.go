package analyzer

import "image"

// QualityScorer assesses bitmaps for text-extraction readiness
type QualityScorer interface {
	// AssessImageQuality never fails; unreadable inputs degrade individual metrics
	AssessImageQuality(bm Bitmap) QualityResult

	// Lifecycle management
	Close() error
}

// MetricsCalculator handles pixel-level computations
type MetricsCalculator interface {
	CalculateLaplacianVariance(img *image.RGBA) (float64, error)
	CalculateMeanBrightness(img *image.RGBA) (float64, error)
}

package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// Readability heuristic constants
const (
	minReadableArea      = 300_000
	maxAspectRatio       = 3.0
	smallImagePenalty    = 0.4
	aspectRatioPenalty   = 0.2
	issueVerySmallImage  = "Very small image"
	issueUnusualAspect   = "Unusual aspect ratio"
	readabilityGoodLabel = "Good for text recognition"
)

// Degraded results used when pixels cannot be read or filtered
const (
	detailsAnalysisFailed   = "Analysis failed"
	detailsCannotSharpness  = "Cannot analyze sharpness"
	detailsCannotBrightness = "Cannot analyze brightness"
	filterFailedScore       = 0.5
)

func newMetric(name string, score float64, status QualityStatus, details string, weight float64) QualityMetric {
	return QualityMetric{
		Name:    name,
		Score:   clamp01(score),
		Status:  status,
		Details: details,
		Weight:  weight,
	}
}

// resolutionMetric rates the physical pixel count
func resolutionMetric(bm Bitmap) QualityMetric {
	w, h := bm.Size()
	scale := bm.Scale()
	megapixels := w * scale * h * scale / 1_000_000

	b := resolutionBands.classify(megapixels)
	pw, ph := PixelSize(bm)
	details := fmt.Sprintf("%.1fMP (%dx%d)", megapixels, pw, ph)
	return newMetric(MetricResolution, b.Score, b.Status, details, WeightResolution)
}

// sharpnessMetric rates edge content via Laplacian variance
func sharpnessMetric(bm Bitmap, mc MetricsCalculator) QualityMetric {
	img, err := bm.RGBA()
	if err != nil {
		return newMetric(MetricSharpness, 0, models.StatusPoor, detailsCannotSharpness, WeightSharpness)
	}

	variance, err := mc.CalculateLaplacianVariance(img)
	if err != nil || math.IsNaN(variance) {
		return newMetric(MetricSharpness, filterFailedScore, models.StatusAcceptable, detailsAnalysisFailed, WeightSharpness)
	}
	return classifySharpness(variance)
}

func classifySharpness(variance float64) QualityMetric {
	b := sharpnessBands.classify(variance)
	return newMetric(MetricSharpness, b.Score, b.Status, fmt.Sprintf("Edge variance: %.1f", variance), WeightSharpness)
}

// brightnessMetric rates mean brightness against the optimal band
func brightnessMetric(bm Bitmap, mc MetricsCalculator) QualityMetric {
	img, err := bm.RGBA()
	if err != nil {
		return newMetric(MetricBrightness, 0, models.StatusPoor, detailsCannotBrightness, WeightBrightness)
	}

	brightness, err := mc.CalculateMeanBrightness(img)
	if err != nil {
		// an unreadable plane is treated like a missing one
		return newMetric(MetricBrightness, 0, models.StatusPoor, detailsCannotBrightness, WeightBrightness)
	}
	return classifyBrightness(brightness)
}

func classifyBrightness(b float64) QualityMetric {
	percent := int(math.Round(b * 100))
	switch {
	case b < 0.1:
		return newMetric(MetricBrightness, brightnessPoorScore, models.StatusPoor,
			fmt.Sprintf("Too dark (%d%%)", percent), WeightBrightness)
	case b > 0.9:
		return newMetric(MetricBrightness, brightnessPoorScore, models.StatusPoor,
			fmt.Sprintf("Too bright (%d%%)", percent), WeightBrightness)
	}

	for _, band := range brightnessBands {
		if b >= band.Low && b <= band.High {
			return newMetric(MetricBrightness, band.Score, band.Status,
				fmt.Sprintf("%s brightness (%d%%)", band.Label, percent), WeightBrightness)
		}
	}
	// unreachable for b in [0.1, 0.9]; kept for NaN input
	return newMetric(MetricBrightness, brightnessPoorScore, models.StatusPoor,
		fmt.Sprintf("Unreadable brightness (%d%%)", percent), WeightBrightness)
}

// readabilityMetric uses geometry only; no pixel access
func readabilityMetric(bm Bitmap) QualityMetric {
	w, h := bm.Size()
	scale := bm.Scale()

	score := 1.0
	var issues []string

	area := w * scale * h * scale
	if area < minReadableArea {
		score -= smallImagePenalty
		issues = append(issues, issueVerySmallImage)
	}

	if aspectRatio(w, h) > maxAspectRatio {
		score -= aspectRatioPenalty
		issues = append(issues, issueUnusualAspect)
	}

	// penalties are tenths; rounding keeps 1-0.4-0.2 on the 0.4 boundary
	score = math.Round(math.Max(score, 0)*100) / 100
	b := readabilityBands.classify(score)

	details := readabilityGoodLabel
	if len(issues) > 0 {
		details = strings.Join(issues, ", ")
	}
	return newMetric(MetricReadability, score, b.Status, details, WeightReadability)
}

func aspectRatio(w, h float64) float64 {
	short, long := math.Min(w, h), math.Max(w, h)
	if short <= 0 {
		return math.Inf(1)
	}
	return long / short
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

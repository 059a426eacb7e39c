package models

import "time"

// QualityStatus is the coarse rating attached to a single quality metric
type QualityStatus string

const (
	StatusExcellent  QualityStatus = "excellent"
	StatusGood       QualityStatus = "good"
	StatusAcceptable QualityStatus = "acceptable"
	StatusPoor       QualityStatus = "poor"
)

// String returns the display form of the status
func (s QualityStatus) String() string {
	switch s {
	case StatusExcellent:
		return "Excellent"
	case StatusGood:
		return "Good"
	case StatusAcceptable:
		return "Acceptable"
	case StatusPoor:
		return "Poor"
	default:
		return string(s)
	}
}

// QualityMetric is one named axis of image quality assessment
type QualityMetric struct {
	Name    string        `json:"name"`
	Score   float64       `json:"score"`
	Status  QualityStatus `json:"status"`
	Details string        `json:"details"`
	Weight  float64       `json:"weight"`
}

// QualityResult is the aggregate verdict for one image.
// It is built once per assessment and never modified afterwards.
type QualityResult struct {
	OverallScore           float64         `json:"overall_score"`
	ShouldUseAlternatePath bool            `json:"should_use_alternate_path"`
	Recommendation         string          `json:"recommendation"`
	Issues                 []string        `json:"issues"`
	Metrics                []QualityMetric `json:"metrics"`
}

// Route names the extraction path chosen for an image
type Route string

const (
	RouteFastOCR   Route = "fast_ocr"
	RouteAlternate Route = "alternate"
)

// ExtractionResult is the outcome of the selected extraction strategy
type ExtractionResult struct {
	Route        Route             `json:"route"`
	Text         string            `json:"text,omitempty"`
	Confidence   float64           `json:"confidence,omitempty"`
	Observations []TextObservation `json:"observations,omitempty"`
	Accuracy     *TextAccuracy     `json:"accuracy,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// Assessment is a persisted quality evaluation of a single image
type Assessment struct {
	ID                string            `json:"id"`
	Source            string            `json:"source"`
	CreatedAt         time.Time         `json:"created_at"`
	ProcessingTimeSec float64           `json:"processing_time_sec"`
	Image             ImageMetadata     `json:"image"`
	Result            QualityResult     `json:"result"`
	Extraction        *ExtractionResult `json:"extraction,omitempty"`
}

// ImageMetadata contains metadata about an image
type ImageMetadata struct {
	ContentType string  `json:"content_type,omitempty"`
	Format      string  `json:"format,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
}

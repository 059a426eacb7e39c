package validation

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/anime-shed/receipt-inspector-go/internal/errors"
)

// DefaultMaxPixels bounds the decoded pixel count of a single image
const DefaultMaxPixels int64 = 50_000_000

// ImageGeometry describes an image before it is scored
type ImageGeometry struct {
	Width  int
	Height int
	Scale  float64
}

// Pixels returns the physical pixel count
func (g ImageGeometry) Pixels() int64 {
	return int64(g.Width) * int64(g.Height)
}

// QualityIssue represents an admission problem with an image
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageValidator rejects images the scorer should not spend time on
type ImageValidator struct {
	maxPixels int64
}

// NewImageValidator creates a validator with the default pixel limit
func NewImageValidator() *ImageValidator {
	return NewImageValidatorWithLimit(DefaultMaxPixels)
}

// NewImageValidatorWithLimit creates a validator. A non-positive limit
// falls back to DefaultMaxPixels.
func NewImageValidatorWithLimit(maxPixels int64) *ImageValidator {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &ImageValidator{maxPixels: maxPixels}
}

// Check lists every issue found with the geometry
func (v *ImageValidator) Check(g ImageGeometry) []QualityIssue {
	var issues []QualityIssue

	if g.Width <= 0 || g.Height <= 0 {
		issues = append(issues, QualityIssue{
			Type:     "empty_image",
			Message:  fmt.Sprintf("Image has no pixels (%dx%d).", g.Width, g.Height),
			Severity: "error",
		})
	}

	if math.IsNaN(g.Scale) || math.IsInf(g.Scale, 0) {
		issues = append(issues, QualityIssue{
			Type:     "invalid_scale",
			Message:  "Scale must be a finite number.",
			Severity: "error",
		})
	} else if g.Scale < 0 {
		issues = append(issues, QualityIssue{
			Type:        "invalid_scale",
			Message:     "Scale cannot be negative.",
			Severity:    "error",
			ActualValue: g.Scale,
		})
	}

	if g.Pixels() > v.maxPixels {
		issues = append(issues, QualityIssue{
			Type:        "too_large",
			Message:     "Image has too many pixels to score.",
			Severity:    "error",
			ActualValue: float64(g.Pixels()),
			Threshold:   float64(v.maxPixels),
		})
	}

	return issues
}

// Validate returns a validation error naming every critical issue
func (v *ImageValidator) Validate(g ImageGeometry) error {
	issues := v.Check(g)
	if !HasCriticalIssues(issues) {
		return nil
	}
	return apperrors.NewValidationError(strings.Join(ConvertIssuesToMessages(issues), " "), nil)
}

// ConvertIssuesToMessages flattens issues to their messages
func ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

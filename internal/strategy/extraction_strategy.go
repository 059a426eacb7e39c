package strategy

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/anime-shed/receipt-inspector-go/internal/analyzer"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// ExtractionInput is what a strategy needs to extract text from one image
type ExtractionInput struct {
	Image        image.Image
	Quality      analyzer.QualityResult
	ExpectedText string
}

// ExtractionStrategy defines one way of turning a receipt image into text
type ExtractionStrategy interface {
	Extract(ctx context.Context, in ExtractionInput) (*models.ExtractionResult, error)
	Route() models.Route
	GetStrategyName() string
}

// FastPathStrategy runs the on-device recognizer
type FastPathStrategy struct {
	recognizer ocr.Recognizer
}

// NewFastPathStrategy creates a fast-path strategy. A nil recognizer means
// local OCR is disabled; Extract then reports the route without text.
func NewFastPathStrategy(recognizer ocr.Recognizer) ExtractionStrategy {
	return &FastPathStrategy{
		recognizer: recognizer,
	}
}

// Extract recognizes text lines and, when an expected transcript is given,
// scores them against it.
func (s *FastPathStrategy) Extract(ctx context.Context, in ExtractionInput) (*models.ExtractionResult, error) {
	result := &models.ExtractionResult{Route: models.RouteFastOCR}
	if s.recognizer == nil {
		result.Reason = "on-device OCR disabled"
		return result, nil
	}

	observations, err := s.recognizer.RecognizeText(ctx, in.Image)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("fast path recognition: %w", err)
	}

	result.Observations = observations
	result.Text = ocr.JoinText(observations)
	result.Confidence = ocr.MeanConfidence(observations)
	if strings.TrimSpace(in.ExpectedText) != "" {
		accuracy := ocr.Evaluate(result.Text, in.ExpectedText)
		result.Accuracy = &accuracy
	}
	return result, nil
}

// Route returns the fast OCR route
func (s *FastPathStrategy) Route() models.Route {
	return models.RouteFastOCR
}

// GetStrategyName returns the strategy name
func (s *FastPathStrategy) GetStrategyName() string {
	return "fast_path"
}

// AlternatePathStrategy flags the image for the external alternate pipeline.
// No local recognition is attempted.
type AlternatePathStrategy struct{}

// NewAlternatePathStrategy creates an alternate-path strategy
func NewAlternatePathStrategy() ExtractionStrategy {
	return &AlternatePathStrategy{}
}

// Extract records why the image was routed away from on-device OCR
func (s *AlternatePathStrategy) Extract(ctx context.Context, in ExtractionInput) (*models.ExtractionResult, error) {
	reason := fmt.Sprintf("overall quality %.2f below %.2f", in.Quality.OverallScore, analyzer.AlternatePathThreshold)
	if len(in.Quality.Issues) > 0 {
		reason += ": " + strings.Join(in.Quality.Issues, ", ")
	}
	return &models.ExtractionResult{
		Route:  models.RouteAlternate,
		Reason: reason,
	}, nil
}

// Route returns the alternate route
func (s *AlternatePathStrategy) Route() models.Route {
	return models.RouteAlternate
}

// GetStrategyName returns the strategy name
func (s *AlternatePathStrategy) GetStrategyName() string {
	return "alternate_path"
}

// Router chooses a strategy from a quality verdict
type Router struct {
	fast      ExtractionStrategy
	alternate ExtractionStrategy
}

// NewRouter creates a router over the two extraction strategies
func NewRouter(fast, alternate ExtractionStrategy) *Router {
	return &Router{fast: fast, alternate: alternate}
}

// Select returns the alternate strategy iff the result asks for it
func (r *Router) Select(result analyzer.QualityResult) ExtractionStrategy {
	if result.ShouldUseAlternatePath {
		return r.alternate
	}
	return r.fast
}

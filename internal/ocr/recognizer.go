package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// Recognizer extracts text lines from an image. Implementations block until
// recognition finishes or ctx is done.
type Recognizer interface {
	RecognizeText(ctx context.Context, img image.Image) ([]models.TextObservation, error)
	Close() error
}

// JoinText concatenates observation text in reading order, one line each
func JoinText(observations []models.TextObservation) string {
	lines := make([]string, 0, len(observations))
	for _, o := range observations {
		if t := strings.TrimSpace(o.Text); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// MeanConfidence returns the average observation confidence, 0 when empty
func MeanConfidence(observations []models.TextObservation) float64 {
	if len(observations) == 0 {
		return 0
	}
	var sum float64
	for _, o := range observations {
		sum += o.Confidence
	}
	return sum / float64(len(observations))
}

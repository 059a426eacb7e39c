// Package tesseract implements ocr.Recognizer on the Tesseract engine via
// gosseract. It needs the tesseract and leptonica shared libraries at build
// and run time.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// Config selects the recognition language(s) and page segmentation
type Config struct {
	Languages   []string
	PageSegMode int
}

// DefaultConfig reads receipts as single uniform blocks of English text
func DefaultConfig() Config {
	return Config{
		Languages:   []string{"eng"},
		PageSegMode: int(gosseract.PSM_SINGLE_BLOCK),
	}
}

// Recognizer wraps one gosseract client. The client is not goroutine-safe,
// so calls are serialized.
type Recognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
}

var _ ocr.Recognizer = (*Recognizer)(nil)

// NewRecognizer creates a Tesseract-backed recognizer
func NewRecognizer(cfg Config) (*Recognizer, error) {
	client := gosseract.NewClient()

	langs := cfg.Languages
	if len(langs) == 0 {
		langs = DefaultConfig().Languages
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language %s: %w", strings.Join(langs, "+"), err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode %d: %w", cfg.PageSegMode, err)
	}

	logger.Component("tesseract").WithFields(logrus.Fields{
		"languages": langs,
		"psm":       cfg.PageSegMode,
		"version":   client.Version(),
	}).Info("Tesseract recognizer initialized")

	return &Recognizer{client: client}, nil
}

// RecognizeText returns one observation per text line with confidence
// scaled from Tesseract's 0-100 range to 0-1.
func (r *Recognizer) RecognizeText(ctx context.Context, img image.Image) ([]models.TextObservation, error) {
	if img == nil {
		return nil, fmt.Errorf("recognize text: nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image for recognition: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text lines: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	observations := make([]models.TextObservation, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		observations = append(observations, models.TextObservation{
			Text:       text,
			Confidence: clampConfidence(b.Confidence / 100),
			BoundingBox: models.BoundingBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
		})
	}
	return observations, nil
}

// Close releases the underlying Tesseract API
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

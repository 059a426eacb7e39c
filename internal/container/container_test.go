package container

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/receipt-inspector-go/internal/config"
	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

type stubRecognizer struct {
	closed bool
}

func (r *stubRecognizer) RecognizeText(ctx context.Context, img image.Image) ([]models.TextObservation, error) {
	return []models.TextObservation{{Text: "TOTAL 9.99", Confidence: 0.9}}, nil
}

func (r *stubRecognizer) Close() error {
	r.closed = true
	return nil
}

func writeReceipt(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 20; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewContainer_LocalStorageEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeReceipt(t, root, "receipt.png")

	cfg := config.Default()
	cfg.StorageBackend = config.StorageLocal
	cfg.LocalImageRoot = root
	cfg.OCREnabled = true

	rec := &stubRecognizer{}
	c, err := NewContainer(cfg, WithRecognizerFactory(func(*config.Config) (ocr.Recognizer, error) {
		return rec, nil
	}))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments",
		strings.NewReader(`{"url":"file:///receipt.png","run_ocr":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if s := c.Stats(); s.CompletedAssessments != 1 || s.ImagesFetched != 1 {
		t.Errorf("Unexpected stats %+v", s)
	}

	list, err := c.Service().ListAssessments(context.Background(), "", 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected one stored assessment, got %d (%v)", len(list), err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !rec.closed {
		t.Error("Expected recognizer to be closed")
	}
}

func TestNewContainer_RejectsHTTPURLForLocalBackend(t *testing.T) {
	cfg := config.Default()
	cfg.StorageBackend = config.StorageLocal
	cfg.LocalImageRoot = t.TempDir()

	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/assessments",
		strings.NewReader(`{"url":"https://example.com/receipt.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestNewContainer_Errors(t *testing.T) {
	t.Run("ocr without factory", func(t *testing.T) {
		cfg := config.Default()
		cfg.OCREnabled = true
		if _, err := NewContainer(cfg); err == nil {
			t.Error("Expected error when OCR has no recognizer")
		}
	})

	t.Run("recognizer failure", func(t *testing.T) {
		cfg := config.Default()
		cfg.OCREnabled = true
		boom := errors.New("no traineddata")
		_, err := NewContainer(cfg, WithRecognizerFactory(func(*config.Config) (ocr.Recognizer, error) {
			return nil, boom
		}))
		if !errors.Is(err, boom) {
			t.Errorf("Expected recognizer error, got %v", err)
		}
	})

	t.Run("missing local root", func(t *testing.T) {
		cfg := config.Default()
		cfg.StorageBackend = config.StorageLocal
		cfg.LocalImageRoot = filepath.Join(t.TempDir(), "absent")
		if _, err := NewContainer(cfg); err == nil {
			t.Error("Expected error for missing image root")
		}
	})
}

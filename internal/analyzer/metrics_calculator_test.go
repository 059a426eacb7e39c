package analyzer

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createTestImage creates a solid-color RGBA image
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fillColor)
		}
	}
	return img
}

// createSplitImage creates an image whose left half is black and right half white
func createSplitImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func TestLaplacianVariance_Uniform(t *testing.T) {
	mc := NewMetricsCalculator()
	img := createTestImage(64, 48, color.RGBA{128, 128, 128, 255})

	variance, err := mc.CalculateLaplacianVariance(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variance > 1e-6 {
		t.Errorf("Expected near-zero variance for uniform image, got %f", variance)
	}
}

func TestLaplacianVariance_SplitEdge(t *testing.T) {
	mc := NewMetricsCalculator()
	img := createSplitImage(100, 100)

	variance, err := mc.CalculateLaplacianVariance(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 200 responses of +-255 among 10000 pixels
	expected := 200 * 255.0 * 255.0 / 10000
	if math.Abs(variance-expected) > 0.5 {
		t.Errorf("Expected variance ~%.1f, got %f", expected, variance)
	}
}

func TestLaplacianVariance_SinglePixel(t *testing.T) {
	mc := NewMetricsCalculator()
	img := createTestImage(1, 1, color.RGBA{200, 10, 10, 255})

	variance, err := mc.CalculateLaplacianVariance(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if variance != 0 {
		t.Errorf("Expected zero variance for single pixel, got %f", variance)
	}
}

func TestLaplacianVariance_InvalidPlane(t *testing.T) {
	mc := NewMetricsCalculator()

	tests := []struct {
		name string
		img  *image.RGBA
	}{
		{"nil", nil},
		{"empty rect", image.NewRGBA(image.Rect(0, 0, 0, 0))},
		{"short buffer", &image.RGBA{Pix: make([]uint8, 8), Stride: 40, Rect: image.Rect(0, 0, 10, 10)}},
		{"narrow stride", &image.RGBA{Pix: make([]uint8, 400), Stride: 4, Rect: image.Rect(0, 0, 10, 10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mc.CalculateLaplacianVariance(tt.img); err == nil {
				t.Error("Expected error for invalid plane")
			}
			if _, err := mc.CalculateMeanBrightness(tt.img); err == nil {
				t.Error("Expected error for invalid plane")
			}
		})
	}
}

func TestMeanBrightness(t *testing.T) {
	mc := NewMetricsCalculator()

	tests := []struct {
		name     string
		img      *image.RGBA
		expected float64
	}{
		{"black", createTestImage(10, 10, color.RGBA{0, 0, 0, 255}), 0},
		{"white", createTestImage(10, 10, color.RGBA{255, 255, 255, 255}), 1},
		{"mid gray", createTestImage(10, 10, color.RGBA{128, 128, 128, 255}), 128.0 / 255},
		{"channel average", createTestImage(4, 4, color.RGBA{255, 0, 0, 255}), 1.0 / 3},
		{"split", createSplitImage(10, 10), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mc.CalculateMeanBrightness(tt.img)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected brightness %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestFillLuma(t *testing.T) {
	img := createTestImage(3, 2, color.RGBA{255, 255, 255, 255})
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	w, h, err := checkPlane(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	luma := make([]float64, w*h)
	fillLuma(img, luma, w, h)

	if math.Abs(luma[0]-0.299*255) > 1e-9 {
		t.Errorf("Expected red luma %f, got %f", 0.299*255, luma[0])
	}
	if math.Abs(luma[5]-255) > 1e-9 {
		t.Errorf("Expected white luma 255, got %f", luma[5])
	}
}

func TestBufferPool_Ceiling(t *testing.T) {
	mc := NewMetricsCalculator().(*metricsCalculator)

	tests := []struct {
		name   string
		n      int
		pooled bool
	}{
		{"small plane reused", 1024, true},
		{"at ceiling reused", maxPooledFloats, true},
		{"oversized plane dropped", maxPooledFloats + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := mc.getBuffer(tt.n)
			if len(*buf) != tt.n {
				t.Fatalf("len = %d, want %d", len(*buf), tt.n)
			}
			mc.putBuffer(buf)
			if tt.pooled && len(*buf) != 0 {
				t.Errorf("Expected pooled buffer to be reset, len %d", len(*buf))
			}
			if !tt.pooled && len(*buf) != tt.n {
				t.Errorf("Expected oversized buffer to be left untouched, len %d", len(*buf))
			}
		})
	}
}

func TestMeanBrightness_SubImage(t *testing.T) {
	mc := NewMetricsCalculator()
	img := createSplitImage(20, 10)

	// right half is white; sub-image shares the parent's stride
	sub := img.SubImage(image.Rect(10, 0, 20, 10)).(*image.RGBA)
	rgba, err := NewBitmap(sub, 1).RGBA()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := mc.CalculateMeanBrightness(rgba)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(b-1) > 1e-9 {
		t.Errorf("Expected white sub-image brightness 1, got %f", b)
	}
}

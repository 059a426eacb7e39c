package analyzer

import (
	"errors"
	"image"
	"image/draw"
	"math"
	"sync"
)

// ErrPixelsUnavailable is returned by Bitmap.RGBA when the bitmap has no
// decodable pixel plane.
var ErrPixelsUnavailable = errors.New("bitmap has no accessible pixel plane")

// Bitmap is the scorer input: a logical size, a display scale factor and
// optional RGBA pixel access.
type Bitmap interface {
	// Size returns the logical width and height in points
	Size() (width, height float64)
	// Scale returns the physical-pixel multiplier
	Scale() float64
	// RGBA returns the decoded pixel plane or ErrPixelsUnavailable
	RGBA() (*image.RGBA, error)
}

// imageBitmap adapts an image.Image. Conversion to RGBA happens at most once
// and the result is shared by every metric reading pixels.
type imageBitmap struct {
	img   image.Image
	scale float64

	once sync.Once
	rgba *image.RGBA
	err  error
}

// NewBitmap wraps a decoded image. Its pixel bounds are physical pixels, so
// the logical size is bounds divided by scale.
func NewBitmap(img image.Image, scale float64) Bitmap {
	return &imageBitmap{img: img, scale: normalizeScale(scale)}
}

func (b *imageBitmap) Size() (float64, float64) {
	if b.img == nil {
		return 0, 0
	}
	bounds := b.img.Bounds()
	return float64(bounds.Dx()) / b.scale, float64(bounds.Dy()) / b.scale
}

func (b *imageBitmap) Scale() float64 {
	return b.scale
}

func (b *imageBitmap) RGBA() (*image.RGBA, error) {
	b.once.Do(func() {
		b.rgba, b.err = toRGBA(b.img)
	})
	return b.rgba, b.err
}

func toRGBA(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrPixelsUnavailable
	}
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba, nil
	}
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba, nil
}

// sizeOnlyBitmap carries geometry without pixels
type sizeOnlyBitmap struct {
	width, height, scale float64
}

// NewSizeOnlyBitmap describes an image whose pixel plane is not available.
// Pixel-based metrics degrade to their "cannot analyze" results.
func NewSizeOnlyBitmap(width, height, scale float64) Bitmap {
	return &sizeOnlyBitmap{width: width, height: height, scale: normalizeScale(scale)}
}

func (b *sizeOnlyBitmap) Size() (float64, float64) { return b.width, b.height }
func (b *sizeOnlyBitmap) Scale() float64           { return b.scale }
func (b *sizeOnlyBitmap) RGBA() (*image.RGBA, error) {
	return nil, ErrPixelsUnavailable
}

// PixelSize returns the physical pixel dimensions of a bitmap
func PixelSize(bm Bitmap) (int, int) {
	w, h := bm.Size()
	scale := bm.Scale()
	return int(math.Round(w * scale)), int(math.Round(h * scale))
}

func normalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1
	}
	return scale
}

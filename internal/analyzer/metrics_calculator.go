package analyzer

import (
	"errors"
	"image"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// errFilterFailed means the edge filter could not produce an output for the
// pixel plane (empty plane or a buffer inconsistent with its stride).
var errFilterFailed = errors.New("edge filter produced no output")

// Luma weights
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// maxPooledFloats bounds the buffers kept for reuse (4 MP, 32 MB); larger
// planes allocate per call and are left to the GC.
const maxPooledFloats = 4 << 20

// metricsCalculator implements MetricsCalculator with pooled float buffers
// and gonum statistics.
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				buf := make([]float64, 0, 1024)
				return &buf
			},
		},
	}
}

func (mc *metricsCalculator) getBuffer(n int) *[]float64 {
	buf := mc.slicePool.Get().(*[]float64)
	if cap(*buf) < n {
		*buf = make([]float64, n)
	}
	*buf = (*buf)[:n]
	return buf
}

func (mc *metricsCalculator) putBuffer(buf *[]float64) {
	if cap(*buf) > maxPooledFloats {
		return
	}
	*buf = (*buf)[:0]
	mc.slicePool.Put(buf)
}

// checkPlane verifies the RGBA buffer covers its rectangle
func checkPlane(img *image.RGBA) (int, int, error) {
	if img == nil {
		return 0, 0, errFilterFailed
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 || img.Stride < w*4 {
		return 0, 0, errFilterFailed
	}
	if len(img.Pix) < (h-1)*img.Stride+w*4 {
		return 0, 0, errFilterFailed
	}
	return w, h, nil
}

// fillLuma writes 8-bit-scale luma values row-major into luma
func fillLuma(img *image.RGBA, luma []float64, w, h int) {
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			luma[y*w+x] = lumaR*float64(p[0]) + lumaG*float64(p[1]) + lumaB*float64(p[2])
		}
	}
}

// CalculateLaplacianVariance filters the luma field with the kernel
// [[0,-1,0],[-1,4,-1],[0,-1,0]] at every pixel (clamp-to-edge borders) and
// returns the population variance of the response.
func (mc *metricsCalculator) CalculateLaplacianVariance(img *image.RGBA) (float64, error) {
	w, h, err := checkPlane(img)
	if err != nil {
		return 0, err
	}

	lumaBuf := mc.getBuffer(w * h)
	defer mc.putBuffer(lumaBuf)
	luma := *lumaBuf
	fillLuma(img, luma, w, h)

	outBuf := mc.getBuffer(w * h)
	defer mc.putBuffer(outBuf)
	out := *outBuf

	for y := 0; y < h; y++ {
		up := clampIndex(y-1, h) * w
		down := clampIndex(y+1, h) * w
		row := y * w
		for x := 0; x < w; x++ {
			left := clampIndex(x-1, w)
			right := clampIndex(x+1, w)
			center := luma[row+x]
			out[row+x] = 4*center - luma[up+x] - luma[down+x] - luma[row+left] - luma[row+right]
		}
	}

	return stat.PopVariance(out, nil), nil
}

// CalculateMeanBrightness returns mean((R+G+B)/3)/255 over all pixels
func (mc *metricsCalculator) CalculateMeanBrightness(img *image.RGBA) (float64, error) {
	w, h, err := checkPlane(img)
	if err != nil {
		return 0, err
	}

	// Every row has the same width, so the mean of row means is the pixel mean.
	rowBuf := mc.getBuffer(h)
	defer mc.putBuffer(rowBuf)
	rowMeans := *rowBuf

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		var sum float64
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			sum += (float64(p[0]) + float64(p[1]) + float64(p[2])) / 3
		}
		rowMeans[y] = sum / float64(w) / 255
	}

	return stat.Mean(rowMeans, nil), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

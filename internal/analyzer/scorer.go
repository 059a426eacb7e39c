package analyzer

import (
	"sync"
	"time"

	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/sirupsen/logrus"
)

// Scorer computes the four quality metrics for a bitmap and combines them.
// It is safe for concurrent use; each call owns its result slots.
type Scorer struct {
	opts              Options
	workerPool        *WorkerPool
	metricsCalculator MetricsCalculator
}

// NewScorer creates a scorer. Concurrent options start a worker pool that
// lives until Close.
func NewScorer(opts Options) *Scorer {
	s := &Scorer{
		opts:              opts,
		metricsCalculator: NewMetricsCalculator(),
	}
	if opts.Concurrent {
		s.workerPool = NewWorkerPool(opts.workerCount())
		s.workerPool.Start()
	}
	return s
}

// AssessImageQuality scores the bitmap. Metrics are reported in the order
// Resolution, Sharpness, Brightness/Contrast, Text Readability regardless of
// completion order.
func (s *Scorer) AssessImageQuality(bm Bitmap) QualityResult {
	start := time.Now()
	if bm == nil {
		bm = NewSizeOnlyBitmap(0, 0, 1)
	}

	tasks := [metricCount]func() QualityMetric{
		func() QualityMetric { return resolutionMetric(bm) },
		func() QualityMetric { return sharpnessMetric(bm, s.metricsCalculator) },
		func() QualityMetric { return brightnessMetric(bm, s.metricsCalculator) },
		func() QualityMetric { return readabilityMetric(bm) },
	}
	metrics := make([]QualityMetric, metricCount)

	if s.workerPool != nil {
		var wg sync.WaitGroup
		for i, task := range tasks {
			i, task := i, task
			wg.Add(1)
			submitted := s.workerPool.Submit(func() {
				defer wg.Done()
				metrics[i] = task()
			})
			if !submitted {
				wg.Done()
				metrics[i] = task()
			}
		}
		wg.Wait()
	} else {
		for i, task := range tasks {
			metrics[i] = task()
		}
	}

	result := Combine(metrics)

	logger.Component("scorer").WithFields(logrus.Fields{
		"overall_score":  result.OverallScore,
		"alternate_path": result.ShouldUseAlternatePath,
		"issues":         len(result.Issues),
		"concurrent":     s.workerPool != nil,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Debug("Image quality assessed")

	return result
}

// Close releases the worker pool. The scorer falls back to sequential
// computation if used afterwards.
func (s *Scorer) Close() error {
	if s.workerPool != nil {
		s.workerPool.Close()
	}
	return nil
}

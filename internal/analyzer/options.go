package analyzer

import "runtime"

// metricCount is the number of independent metric computations per image
const metricCount = 4

// Options configures how the scorer schedules metric computations
type Options struct {
	// Concurrent fans the four metrics out on the worker pool
	Concurrent bool
	// MaxWorkers bounds the pool; 0 selects min(NumCPU, 4)
	MaxWorkers int
}

// DefaultOptions returns concurrent scoring with a pool sized to the metric count
func DefaultOptions() Options {
	return Options{
		Concurrent: true,
		MaxWorkers: 0,
	}
}

// SequentialOptions returns options that compute metrics on the calling goroutine
func SequentialOptions() Options {
	return Options{Concurrent: false}
}

// WithMaxWorkers sets the pool size
func (opts Options) WithMaxWorkers(n int) Options {
	opts.MaxWorkers = n
	return opts
}

// WithConcurrency toggles concurrent metric computation
func (opts Options) WithConcurrency(enabled bool) Options {
	opts.Concurrent = enabled
	return opts
}

func (opts Options) workerCount() int {
	if opts.MaxWorkers > 0 {
		return opts.MaxWorkers
	}
	n := runtime.NumCPU()
	if n > metricCount {
		n = metricCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

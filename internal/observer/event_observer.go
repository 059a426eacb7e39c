package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/receipt-inspector-go/internal/logger"
)

// AssessmentEvent represents one step in the life of an assessment
type AssessmentEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	AssessmentID   string                 `json:"assessment_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	ImageURL       string                 `json:"image_url,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	OverallScore   float64                `json:"overall_score,omitempty"`
	AlternatePath  bool                   `json:"alternate_path,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of assessment event
type EventType string

const (
	// AssessmentStarted when scoring begins
	AssessmentStarted EventType = "assessment_started"
	// AssessmentCompleted when a verdict has been produced
	AssessmentCompleted EventType = "assessment_completed"
	// AssessmentFailed when no verdict could be produced
	AssessmentFailed EventType = "assessment_failed"
	// ImageFetched when image is successfully fetched
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when image fetch fails
	ImageFetchFailed EventType = "image_fetch_failed"
	// OCRCompleted when the fast path recognizer returns
	OCRCompleted EventType = "ocr_completed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AssessmentEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AssessmentEvent)
}

// LoggingObserver logs assessment events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles assessment events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AssessmentEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.AssessmentID != "" {
		fields["assessment_id"] = event.AssessmentID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ImageURL != "" {
		fields["image_url"] = event.ImageURL
	}
	if event.EventType == AssessmentCompleted {
		fields["overall_score"] = event.OverallScore
		fields["alternate_path"] = event.AlternatePath
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AssessmentStarted:
		entry.Debug("Assessment started")
	case AssessmentCompleted:
		entry.Info("Assessment completed")
	case AssessmentFailed:
		entry.Error("Assessment failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Warn("Image fetch failed")
	case OCRCompleted:
		if event.Success {
			entry.Debug("OCR completed")
		} else {
			entry.Warn("OCR failed")
		}
	default:
		entry.Info("Assessment event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Stats is a point-in-time view of MetricsObserver counters
type Stats struct {
	TotalAssessments     int64   `json:"total_assessments"`
	CompletedAssessments int64   `json:"completed_assessments"`
	FailedAssessments    int64   `json:"failed_assessments"`
	AlternatePathCount   int64   `json:"alternate_path_count"`
	FastPathCount        int64   `json:"fast_path_count"`
	ImagesFetched        int64   `json:"images_fetched"`
	ImageFetchFailures   int64   `json:"image_fetch_failures"`
	OCRRuns              int64   `json:"ocr_runs"`
	OCRFailures          int64   `json:"ocr_failures"`
	AvgProcessingTimeSec float64 `json:"avg_processing_time_sec"`
	AvgOverallScore      float64 `json:"avg_overall_score"`
}

// MetricsObserver collects counters from assessment events
type MetricsObserver struct {
	mu                  sync.RWMutex
	stats               Stats
	totalProcessingTime time.Duration
	totalScore          float64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles assessment events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AssessmentEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AssessmentStarted:
		o.stats.TotalAssessments++
	case AssessmentCompleted:
		o.stats.CompletedAssessments++
		o.totalProcessingTime += event.ProcessingTime
		o.totalScore += event.OverallScore
		if event.AlternatePath {
			o.stats.AlternatePathCount++
		} else {
			o.stats.FastPathCount++
		}
	case AssessmentFailed:
		o.stats.FailedAssessments++
	case ImageFetched:
		o.stats.ImagesFetched++
	case ImageFetchFailed:
		o.stats.ImageFetchFailures++
	case OCRCompleted:
		o.stats.OCRRuns++
		if !event.Success {
			o.stats.OCRFailures++
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns the current counters with derived averages
func (o *MetricsObserver) Snapshot() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.stats
	if s.CompletedAssessments > 0 {
		n := float64(s.CompletedAssessments)
		s.AvgProcessingTimeSec = o.totalProcessingTime.Seconds() / n
		s.AvgOverallScore = o.totalScore / n
	}
	return s
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers an event to every observer in subscription
// order. Observers run on the caller's goroutine, so they must not block.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AssessmentEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event AssessmentEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Component("observer").WithFields(logrus.Fields{
				"observer": obs.GetObserverName(),
				"panic":    r,
			}).Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anime-shed/receipt-inspector-go/internal/analyzer"
	"github.com/anime-shed/receipt-inspector-go/internal/config"
	"github.com/anime-shed/receipt-inspector-go/internal/factory"
	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/observer"
	"github.com/anime-shed/receipt-inspector-go/internal/ocr"
	"github.com/anime-shed/receipt-inspector-go/internal/repository"
	"github.com/anime-shed/receipt-inspector-go/internal/service"
	"github.com/anime-shed/receipt-inspector-go/internal/strategy"
	"github.com/anime-shed/receipt-inspector-go/internal/transport"
	"github.com/anime-shed/receipt-inspector-go/pkg/validation"
)

const databaseConnectTimeout = 10 * time.Second

// RecognizerFactory builds the on-device text recognizer
type RecognizerFactory func(cfg *config.Config) (ocr.Recognizer, error)

// Option customizes container construction
type Option func(*options)

type options struct {
	newRecognizer RecognizerFactory
}

// WithRecognizerFactory supplies the recognizer used when OCR is enabled
func WithRecognizerFactory(f RecognizerFactory) Option {
	return func(o *options) {
		o.newRecognizer = f
	}
}

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	scorer            *analyzer.Scorer
	recognizer        ocr.Recognizer
	assessments       repository.AssessmentRepository
	metrics           *observer.MetricsObserver
	assessmentService service.AssessmentService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	components := factory.NewComponentFactory(cfg)

	fetcher, err := components.StorageFactory.CreateStorage(factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.StorageBackend, err)
	}
	urlValidator := validation.NewURLValidatorForBackend(cfg.StorageBackend, cfg.AllowedImageHosts)
	imageRepository := repository.NewImageRepository(fetcher, urlValidator)

	assessments, err := newAssessmentRepository(cfg)
	if err != nil {
		return nil, err
	}

	var recognizer ocr.Recognizer
	if cfg.OCREnabled {
		if o.newRecognizer == nil {
			assessments.Close()
			return nil, errors.New("OCR is enabled but no recognizer is available")
		}
		recognizer, err = o.newRecognizer(cfg)
		if err != nil {
			assessments.Close()
			return nil, fmt.Errorf("failed to create recognizer: %w", err)
		}
	}

	scorer := components.ScorerFactory.CreateScorer()
	router := strategy.NewRouter(
		strategy.NewFastPathStrategy(recognizer),
		strategy.NewAlternatePathStrategy(),
	)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	assessmentService := service.NewAssessmentService(service.Dependencies{
		Images:      imageRepository,
		Assessments: assessments,
		Scorer:      scorer,
		Router:      router,
		Validator:   validation.NewImageValidatorWithLimit(cfg.MaxPixels),
		Publisher:   publisher,
	}, service.Config{
		FetchTimeout:     cfg.ImageFetchTimeout,
		AnalysisTimeout:  cfg.AnalysisTimeout,
		BatchConcurrency: cfg.BatchConcurrency,
	})

	handler := transport.NewHandler(assessmentService, metrics, cfg)

	return &Container{
		config:            cfg,
		scorer:            scorer,
		recognizer:        recognizer,
		assessments:       assessments,
		metrics:           metrics,
		assessmentService: assessmentService,
		handler:           handler,
	}, nil
}

// newAssessmentRepository picks PostgreSQL when a DSN is configured and
// the bounded in-memory history otherwise
func newAssessmentRepository(cfg *config.Config) (repository.AssessmentRepository, error) {
	if cfg.DatabaseDSN == "" {
		return repository.NewMemoryAssessmentRepository(cfg.HistoryLimit), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), databaseConnectTimeout)
	defer cancel()

	repo, err := repository.NewPostgresAssessmentRepository(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open assessment store: %w", err)
	}
	return repo, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the assessment service
func (c *Container) Service() service.AssessmentService {
	return c.assessmentService
}

// Stats returns the current assessment counters
func (c *Container) Stats() observer.Stats {
	return c.metrics.Snapshot()
}

// Close releases the scorer workers, the recognizer and the assessment store
func (c *Container) Close() error {
	var errs []error
	if err := c.scorer.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.recognizer != nil {
		if err := c.recognizer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.assessments.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/receipt-inspector-go/internal/analyzer"
	apperrors "github.com/anime-shed/receipt-inspector-go/internal/errors"
	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/observer"
	"github.com/anime-shed/receipt-inspector-go/internal/repository"
	"github.com/anime-shed/receipt-inspector-go/internal/storage"
	"github.com/anime-shed/receipt-inspector-go/internal/strategy"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
	"github.com/anime-shed/receipt-inspector-go/pkg/validation"
)

// Assessment sources recorded with every stored assessment
const (
	SourceURL    = "url"
	SourceUpload = "upload"
	SourceBatch  = "batch"
)

const (
	// MaxBatchSize bounds the number of items in one batch request
	MaxBatchSize = 50
	// DefaultListLimit is used when a history query names no limit
	DefaultListLimit = 20
	// MaxListLimit caps a single history page
	MaxListLimit = 200
)

// AssessmentService scores receipt images and keeps their history
type AssessmentService interface {
	// AssessImage fetches the image behind req.URL and scores it
	AssessImage(ctx context.Context, req models.AssessRequest) (*models.Assessment, error)

	// AssessUpload scores an already decoded image
	AssessUpload(ctx context.Context, img image.Image, opts UploadOptions) (*models.Assessment, error)

	// AssessBatch scores several URLs concurrently. Item failures are
	// reported per item; the result order matches the request order.
	AssessBatch(ctx context.Context, reqs []models.AssessRequest) (*models.BatchAssessResponse, error)

	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	ListAssessments(ctx context.Context, source string, limit int) ([]*models.Assessment, error)
}

// UploadOptions describe an uploaded image
type UploadOptions struct {
	Format       string
	Scale        float64
	RunOCR       bool
	ExpectedText string
}

// Config tunes the service pipeline
type Config struct {
	FetchTimeout     time.Duration
	AnalysisTimeout  time.Duration
	BatchConcurrency int
}

// Dependencies are the collaborators of an AssessmentService
type Dependencies struct {
	Images      repository.ImageRepository
	Assessments repository.AssessmentRepository
	Scorer      analyzer.QualityScorer
	Router      *strategy.Router
	Validator   *validation.ImageValidator
	Publisher   observer.Subject
}

type assessmentService struct {
	images      repository.ImageRepository
	assessments repository.AssessmentRepository
	scorer      analyzer.QualityScorer
	router      *strategy.Router
	validator   *validation.ImageValidator
	publisher   observer.Subject
	cfg         Config

	now   func() time.Time
	newID func() string
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(deps Dependencies, cfg Config) AssessmentService {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewImageValidator()
	}
	if deps.Publisher == nil {
		deps.Publisher = observer.NewEventPublisher()
	}
	return &assessmentService{
		images:      deps.Images,
		assessments: deps.Assessments,
		scorer:      deps.Scorer,
		router:      deps.Router,
		validator:   deps.Validator,
		publisher:   deps.Publisher,
		cfg:         cfg,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// pipelineInput is what every entry point hands to assess
type pipelineInput struct {
	img          image.Image
	format       string
	source       string
	imageURL     string
	scale        float64
	runOCR       bool
	expectedText string
}

func (s *assessmentService) AssessImage(ctx context.Context, req models.AssessRequest) (*models.Assessment, error) {
	return s.assessURL(ctx, req, SourceURL)
}

func (s *assessmentService) assessURL(ctx context.Context, req models.AssessRequest, source string) (*models.Assessment, error) {
	imageURL := strings.TrimSpace(req.URL)
	if err := s.images.ValidateImageURL(imageURL); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, err
		}
		return nil, apperrors.NewValidationError("invalid image URL", err)
	}

	img, err := s.fetch(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	return s.assess(ctx, pipelineInput{
		img:          img,
		source:       source,
		imageURL:     imageURL,
		scale:        req.Scale,
		runOCR:       req.RunOCR,
		expectedText: req.ExpectedText,
	})
}

func (s *assessmentService) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	fetchCtx, cancel := withTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	img, err := s.images.FetchImage(fetchCtx, imageURL)
	if err != nil {
		s.publisher.NotifyObservers(ctx, observer.AssessmentEvent{
			EventType:      observer.ImageFetchFailed,
			ImageURL:       imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, mapFetchError(err)
	}

	s.publisher.NotifyObservers(ctx, observer.AssessmentEvent{
		EventType:      observer.ImageFetched,
		ImageURL:       imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
	})
	return img, nil
}

func (s *assessmentService) AssessUpload(ctx context.Context, img image.Image, opts UploadOptions) (*models.Assessment, error) {
	if img == nil {
		return nil, apperrors.NewValidationError("image is required", nil)
	}
	return s.assess(ctx, pipelineInput{
		img:          img,
		format:       opts.Format,
		source:       SourceUpload,
		scale:        opts.Scale,
		runOCR:       opts.RunOCR,
		expectedText: opts.ExpectedText,
	})
}

// assess runs validate, score, route, extract, persist for one image
func (s *assessmentService) assess(ctx context.Context, in pipelineInput) (*models.Assessment, error) {
	start := s.now()
	id := s.newID()
	bounds := in.img.Bounds()

	fail := func(err error) (*models.Assessment, error) {
		s.publisher.NotifyObservers(ctx, observer.AssessmentEvent{
			EventType:      observer.AssessmentFailed,
			AssessmentID:   id,
			Source:         in.source,
			ImageURL:       in.imageURL,
			ProcessingTime: s.now().Sub(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.publisher.NotifyObservers(ctx, observer.AssessmentEvent{
		EventType:    observer.AssessmentStarted,
		AssessmentID: id,
		Source:       in.source,
		ImageURL:     in.imageURL,
	})

	geometry := validation.ImageGeometry{Width: bounds.Dx(), Height: bounds.Dy(), Scale: in.scale}
	if err := s.validator.Validate(geometry); err != nil {
		return fail(err)
	}

	analysisCtx, cancel := withTimeout(ctx, s.cfg.AnalysisTimeout)
	defer cancel()

	bm := analyzer.NewBitmap(in.img, in.scale)
	result, err := s.score(analysisCtx, bm)
	if err != nil {
		return fail(apperrors.NewTimeoutError("image analysis timed out", err))
	}

	extraction := s.extract(analysisCtx, id, in, result)

	assessment := &models.Assessment{
		ID:         id,
		Source:     in.source,
		CreatedAt:  start.UTC(),
		Image:      s.images.GetImageMetadata(in.img, in.format, bm.Scale()),
		Result:     result,
		Extraction: extraction,
	}
	assessment.ProcessingTimeSec = s.now().Sub(start).Seconds()

	if err := s.assessments.SaveAssessment(ctx, assessment); err != nil {
		// the verdict is still returned; only its history entry is lost
		logger.Component("service").WithFields(logrus.Fields{
			"assessment_id": id,
			"source":        in.source,
		}).WithError(err).Error("Failed to persist assessment")
	}

	s.publisher.NotifyObservers(ctx, observer.AssessmentEvent{
		EventType:      observer.AssessmentCompleted,
		AssessmentID:   id,
		Source:         in.source,
		ImageURL:       in.imageURL,
		ProcessingTime: s.now().Sub(start),
		Success:        true,
		OverallScore:   result.OverallScore,
		AlternatePath:  result.ShouldUseAlternatePath,
		Metadata: map[string]interface{}{
			"recommendation": result.Recommendation,
			"route":          extraction.Route,
		},
	})

	return assessment, nil
}

// score runs the scorer off the request goroutine so a deadline can
// abandon a slow assessment. The scorer itself is not interruptible.
func (s *assessmentService) score(ctx context.Context, bm analyzer.Bitmap) (models.QualityResult, error) {
	done := make(chan models.QualityResult, 1)
	go func() {
		done <- s.scorer.AssessImageQuality(bm)
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return models.QualityResult{}, ctx.Err()
	}
}

// extract applies the routed strategy. Recognition failures are recorded
// on the extraction and never fail the assessment.
func (s *assessmentService) extract(ctx context.Context, id string, in pipelineInput, result models.QualityResult) *models.ExtractionResult {
	selected := s.router.Select(result)
	if selected.Route() == models.RouteFastOCR && !in.runOCR {
		return &models.ExtractionResult{Route: models.RouteFastOCR, Reason: "OCR not requested"}
	}

	start := time.Now()
	extraction, err := selected.Extract(ctx, strategy.ExtractionInput{
		Image:        in.img,
		Quality:      result,
		ExpectedText: in.expectedText,
	})
	if extraction == nil {
		extraction = &models.ExtractionResult{Route: selected.Route()}
		if err != nil {
			extraction.Error = err.Error()
		}
	}

	if recognized(extraction) {
		event := observer.AssessmentEvent{
			EventType:      observer.OCRCompleted,
			AssessmentID:   id,
			Source:         in.source,
			ProcessingTime: time.Since(start),
			Success:        err == nil,
			Metadata: map[string]interface{}{
				"lines": len(extraction.Observations),
			},
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		s.publisher.NotifyObservers(ctx, event)
	}
	return extraction
}

// recognized reports whether the fast path actually ran a recognizer
func recognized(e *models.ExtractionResult) bool {
	return e.Route == models.RouteFastOCR && e.Reason == ""
}

func (s *assessmentService) AssessBatch(ctx context.Context, reqs []models.AssessRequest) (*models.BatchAssessResponse, error) {
	if len(reqs) == 0 {
		return nil, apperrors.NewValidationError("batch must contain at least one item", nil)
	}
	if len(reqs) > MaxBatchSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("batch exceeds %d items", MaxBatchSize), nil)
	}

	results := make([]models.BatchItemResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			results[i].URL = req.URL
			assessment, err := s.assessURL(gctx, req, SourceBatch)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Assessment = assessment
			return nil
		})
	}
	_ = g.Wait()

	resp := &models.BatchAssessResponse{Results: results}
	for _, r := range results {
		if r.Error != "" {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp, nil
}

func (s *assessmentService) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("assessment id is required", nil)
	}

	assessment, err := s.assessments.GetAssessment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAssessmentNotFound) {
			return nil, apperrors.NewNotFoundError("assessment not found", err)
		}
		return nil, apperrors.NewInternalError("failed to load assessment", err)
	}
	return assessment, nil
}

func (s *assessmentService) ListAssessments(ctx context.Context, source string, limit int) ([]*models.Assessment, error) {
	switch source {
	case "", SourceURL, SourceUpload, SourceBatch:
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown source %q", source), nil)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	list, err := s.assessments.ListAssessments(ctx, source, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}
	return list, nil
}

// mapFetchError classifies a fetch failure for the caller
func mapFetchError(err error) error {
	switch {
	case storage.IsTimeout(err), errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("timed out fetching image", err)
	case errors.Is(err, storage.ErrUnsupportedImage):
		return apperrors.NewProcessingError("image could not be decoded", err)
	case errors.Is(err, storage.ErrImageNotFound):
		return apperrors.NewNotFoundError("image not found", err)
	case errors.Is(err, storage.ErrInvalidBlobURL), errors.Is(err, storage.ErrOutsideRoot):
		return apperrors.NewValidationError("invalid image URL", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return apperrors.NewValidationError("image exceeds the pixel limit", err)
	default:
		return apperrors.NewNetworkError("failed to fetch image", err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

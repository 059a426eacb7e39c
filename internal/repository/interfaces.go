package repository

import (
	"context"
	"image"

	"github.com/anime-shed/receipt-inspector-go/pkg/models"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage retrieves an image from a URL
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error

	// GetImageMetadata describes a decoded image at the given display scale
	GetImageMetadata(img image.Image, format string, scale float64) models.ImageMetadata
}

// AssessmentRepository stores completed assessments
type AssessmentRepository interface {
	// SaveAssessment stores an assessment, replacing any with the same id
	SaveAssessment(ctx context.Context, a *models.Assessment) error

	// GetAssessment retrieves a stored assessment
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)

	// ListAssessments returns the newest assessments first. An empty source
	// matches every assessment.
	ListAssessments(ctx context.Context, source string, limit int) ([]*models.Assessment, error)

	Close() error
}

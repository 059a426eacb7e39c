package repository

import (
	"context"
	"image"
	"strings"

	"github.com/anime-shed/receipt-inspector-go/internal/storage"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"
	"github.com/anime-shed/receipt-inspector-go/pkg/validation"
)

// FetcherImageRepository implements ImageRepository over any storage backend
type FetcherImageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

// NewImageRepository creates an image repository. A nil validator accepts
// http and https URLs from any host.
func NewImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &FetcherImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchImage retrieves an image from a URL
func (r *FetcherImageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	return r.fetcher.FetchImage(ctx, imageURL)
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *FetcherImageRepository) ValidateImageURL(imageURL string) error {
	return r.validator.ValidateImageURL(imageURL)
}

// GetImageMetadata describes a decoded image
func (r *FetcherImageRepository) GetImageMetadata(img image.Image, format string, scale float64) models.ImageMetadata {
	meta := models.ImageMetadata{
		Format: strings.ToLower(format),
		Scale:  scale,
	}
	if img != nil {
		b := img.Bounds()
		meta.Width = b.Dx()
		meta.Height = b.Dy()
	}
	if meta.Format != "" {
		meta.ContentType = "image/" + meta.Format
	}
	return meta
}

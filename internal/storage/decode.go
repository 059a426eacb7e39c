package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// ErrUnsupportedImage is returned when fetched bytes are not a decodable
// JPEG, PNG or GIF image.
var ErrUnsupportedImage = errors.New("unsupported or corrupt image data")

// ErrImageNotFound is returned when the source has no image under the URL
var ErrImageNotFound = errors.New("image not found")

// ErrImageTooLarge is returned when the header declares more pixels than
// the decoder accepts. The pixel plane is never allocated.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// ImageFetcher retrieves and decodes an image from a source URL
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// DecodeImage decodes r and returns the image with its format name. When
// maxPixels > 0 the header is read first and images whose width×height
// exceeds it are rejected with ErrImageTooLarge.
func DecodeImage(r io.Reader, maxPixels int64) (image.Image, string, error) {
	if maxPixels > 0 {
		var header bytes.Buffer
		cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
			return nil, "", fmt.Errorf("%w: %dx%d is %d pixels, limit %d",
				ErrImageTooLarge, cfg.Width, cfg.Height, pixels, maxPixels)
		}
		r = io.MultiReader(&header, r)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for file URLs that escape the image root
var ErrOutsideRoot = errors.New("path escapes image root")

// LocalFileFetcher reads file:// URLs relative to a root directory
type LocalFileFetcher struct {
	root      string
	maxPixels int64
}

// NewLocalFileFetcher serves images under root. maxPixels <= 0 disables the
// pre-decode size check.
func NewLocalFileFetcher(root string, maxPixels int64) (*LocalFileFetcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve image root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("image root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image root %s is not a directory", abs)
	}
	return &LocalFileFetcher{root: abs, maxPixels: maxPixels}, nil
}

// FetchImage opens file:///<relative path> beneath the root
func (f *LocalFileFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := f.resolve(imageURL)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrImageNotFound, err)
		}
		return nil, err
	}
	defer file.Close()

	img, _, err := DecodeImage(file, f.maxPixels)
	return img, err
}

func (f *LocalFileFetcher) resolve(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported scheme %q for local storage", u.Scheme)
	}

	// file://receipts/a.png puts "receipts" in Host
	raw := u.Host + "/" + strings.TrimPrefix(u.Path, "/")
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, imageURL)
		}
	}

	rel := strings.TrimPrefix(path.Clean("/"+raw), "/")
	if rel == "" {
		return "", fmt.Errorf("file URL %q names no file", imageURL)
	}

	full := filepath.Join(f.root, filepath.FromSlash(rel))
	if r, err := filepath.Rel(f.root, full); err != nil || strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, imageURL)
	}
	return full, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/receipt-inspector-go/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = time.Second
	maxRedirects        = 3
)

// HTTPImageFetcher downloads images over HTTP(S) with bounded retries
type HTTPImageFetcher struct {
	client       *http.Client
	maxAttempts  int
	retryBackoff time.Duration
	maxPixels    int64
}

// HTTPOption customizes an HTTPImageFetcher
type HTTPOption func(*HTTPImageFetcher)

// WithRetryBackoff sets the base delay; attempt n waits n*backoff
func WithRetryBackoff(d time.Duration) HTTPOption {
	return func(f *HTTPImageFetcher) {
		f.retryBackoff = d
	}
}

// WithMaxAttempts bounds the number of requests per fetch
func WithMaxAttempts(n int) HTTPOption {
	return func(f *HTTPImageFetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithMaxPixels rejects images whose header declares more pixels than n
func WithMaxPixels(n int64) HTTPOption {
	return func(f *HTTPImageFetcher) {
		f.maxPixels = n
	}
}

// WithClientTimeout caps a single request including body download
func WithClientTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPImageFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(opts ...HTTPOption) *HTTPImageFetcher {
	// Single-image downloads; a small idle pool is enough.
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	f := &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects (limit: %d)", maxRedirects)
				}
				return nil
			},
		},
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchImage downloads and decodes the image. Transport errors and 5xx
// responses are retried; 4xx responses fail immediately.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	var lastErr error

	for attempt := 0; attempt < h.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := h.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}

		img, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		logger.Component("http_fetcher").WithError(err).WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
		}).Warn("Image fetch attempt failed")
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.maxAttempts, lastErr)
}

// fetchOnce performs one request. retry reports whether the failure is transient.
func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (img image.Image, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/gif, */*")
	req.Header.Set("User-Agent", "Receipt-Inspector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// a cancelled or expired context is final
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, fmt.Errorf("%w: client error: status code %d", ErrImageNotFound, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	img, _, err = DecodeImage(resp.Body, h.maxPixels)
	if err != nil {
		return nil, false, err
	}
	return img, false, nil
}

func (h *HTTPImageFetcher) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * h.retryBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTimeout reports whether err came from an expired deadline or a
// client-side request timeout
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

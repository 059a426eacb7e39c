package validation

import (
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/receipt-inspector-go/internal/errors"
)

// URLValidator checks receipt image URLs against the schemes the storage
// backend can serve and an optional host allow-list.
type URLValidator struct {
	allowedSchemes []string
	// exact names or "*.suffix" patterns; empty allows every host
	allowedHosts []string
}

// NewURLValidator accepts any http(s) host
func NewURLValidator() *URLValidator {
	return NewURLValidatorWithOptions([]string{"http", "https"}, nil)
}

// NewURLValidatorForBackend allows the schemes a storage backend can serve.
// The local backend accepts only file URLs.
func NewURLValidatorForBackend(backend string, hosts []string) *URLValidator {
	schemes := []string{"http", "https"}
	if backend == "local" {
		schemes = []string{"file"}
	}
	return NewURLValidatorWithOptions(schemes, hosts)
}

func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   normalized,
	}
}

// ValidateImageURL returns a validation AppError when imageURL cannot be
// fetched by the configured backend.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil).
			WithDetails("allowed: " + strings.Join(v.allowedSchemes, ", "))
	}

	// file URLs name a path beneath the local image root, not a host
	if parsedURL.Scheme == "file" {
		if strings.Trim(parsedURL.Host+parsedURL.Path, "/") == "" {
			return apperrors.NewValidationError("file URL must name a path", nil)
		}
		return nil
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if parsedURL.User != nil {
		return apperrors.NewValidationError("URL must not embed credentials", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil).
			WithDetails(parsedURL.Hostname())
	}

	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	return slices.Contains(v.allowedSchemes, strings.ToLower(scheme))
}

// isHostAllowed matches case-insensitively. "*.example.com" matches any
// subdomain but not example.com itself.
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range v.allowedHosts {
		if suffix, ok := strings.CutPrefix(allowed, "*"); ok {
			if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

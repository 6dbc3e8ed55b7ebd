// Package imagesource holds the image candidate providers and the HEAD-only validator.
package imagesource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultValidationTimeout bounds a single HEAD check
const DefaultValidationTimeout = 8 * time.Second

// badStatuses are rejected regardless of how the rest of the response looks
var badStatuses = map[int]bool{
	http.StatusForbidden: true,
	530:                  true, // Cloudflare origin error
}

// Validator checks that a candidate URL is alive and serves an image. Body bytes are never read.
type Validator struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewValidator creates a new Validator
func NewValidator(timeout time.Duration) *Validator {
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	return &Validator{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// ValidationError describes why a candidate was rejected
type ValidationError struct {
	URL         string
	StatusCode  int
	ContentType string
	Err         error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image candidate %s unreachable: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("image candidate %s rejected (status=%d, content-type=%q)", e.URL, e.StatusCode, e.ContentType)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate issues a HEAD request cancelled after the configured timeout
func (v *Validator) Validate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return &ValidationError{URL: url, Err: err}
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return &ValidationError{URL: url, Err: err}
	}
	resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !IsValidResponse(resp.StatusCode, contentType) {
		return &ValidationError{URL: url, StatusCode: resp.StatusCode, ContentType: contentType}
	}
	return nil
}

// IsValidResponse is the pure acceptance rule: 2xx, not a known-bad status, image/* content type
func IsValidResponse(status int, contentType string) bool {
	if status < 200 || status > 299 {
		return false
	}
	if badStatuses[status] {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

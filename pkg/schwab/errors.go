package schwab

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrNotAuthenticated means the user has to complete the OAuth flow again
	ErrNotAuthenticated = errors.New("not authenticated with Schwab, re-authentication required")
	// ErrRefreshFailed means the refresh grant was rejected
	ErrRefreshFailed = errors.New("failed to refresh Schwab tokens")
)

// defaultRetryAfter is used when a 429 carries no usable Retry-After header
const defaultRetryAfter = 60 * time.Second

// APIError is a non-200 response from the trader API
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// RateLimitError is a 429 response
type RateLimitError struct {
	APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded on %s, retry after %s", e.Path, e.RetryAfter)
}

func newAPIError(path string, resp *http.Response, body []byte) error {
	apiErr := APIError{Path: path, StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{APIError: apiErr, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}
	return &apiErr
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

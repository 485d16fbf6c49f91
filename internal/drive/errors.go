// Package drive provides an HTTP client for the Google Drive v3 API
// with automatic retry, rate limit handling, and error classification.
package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, drive.ErrNotFound) to check.
var (
	ErrBadRequest     = errors.New("drive: bad request")
	ErrUnauthorized   = errors.New("drive: unauthorized")
	ErrForbidden      = errors.New("drive: forbidden")
	ErrNotFound       = errors.New("drive: not found")
	ErrThrottled      = errors.New("drive: rate limited")
	ErrServerError    = errors.New("drive: server error")
	ErrExportTooLarge = errors.New("drive: export exceeds size limit")
)

// exportSizeLimitReason is the Drive API error reason returned when an
// export conversion exceeds the provider's ~10 MB ceiling.
const exportSizeLimitReason = "exportSizeLimitExceeded"

// APIError wraps a sentinel error with the HTTP status code and the reason
// string from the Drive API error body for debugging.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("drive: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// apiErrorBody mirrors the Drive API JSON error envelope.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// parseAPIError builds an APIError from a non-2xx response body. The body
// is best-effort JSON; malformed bodies fall back to the raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		if len(envelope.Error.Errors) > 0 {
			apiErr.Reason = envelope.Error.Errors[0].Reason
		}
	}

	apiErr.Err = classify(statusCode, apiErr.Reason)

	return apiErr
}

// classify maps an HTTP status code and Drive error reason to a sentinel
// error. Returns nil for 2xx success codes.
func classify(code int, reason string) error {
	if reason == exportSizeLimitReason {
		return ErrExportTooLarge
	}

	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// 403 is retried only for rate limit reasons — other 403s (permissions,
// export size) are permanent.
func isRetryable(code int, reason string) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return reason == "rateLimitExceeded" || reason == "userRateLimitExceeded"
	default:
		return false
	}
}

// IsAuthError reports whether the error indicates an expired or revoked
// credential: the session cannot continue and the user must re-authenticate.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

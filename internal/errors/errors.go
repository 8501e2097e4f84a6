// Package errors provides categorized error types for the indexing pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryConfig represents configuration errors; fatal at startup
	CategoryConfig ErrorCategory = "config"
	// CategoryRateLimit represents endpoint throttling; recovered by rotation and backoff
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryExhausted represents rotation and backoff both running out
	CategoryExhausted ErrorCategory = "exhausted"
	// CategoryRemote represents non-retryable remote operation failures
	CategoryRemote ErrorCategory = "remote"
	// CategoryStorage represents record store failures
	CategoryStorage ErrorCategory = "storage"
	// CategoryAggregation represents stats recomputation failures
	CategoryAggregation ErrorCategory = "aggregation"
)

// CategorizedError represents an error with a category and machine-readable code
type CategorizedError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConfig,
		Code:     "CONFIG_ERROR",
		Message:  message,
	}
}

// NewRateLimitedError creates a rate-limit error for an endpoint
func NewRateLimitedError(endpoint string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryRateLimit,
		Code:     "RATE_LIMITED",
		Message:  fmt.Sprintf("endpoint rate limited: %s", endpoint),
		Cause:    cause,
	}
}

// NewExhaustedError creates an error for exhausted rotation plus backoff
func NewExhaustedError(cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryExhausted,
		Code:     "RPC_EXHAUSTED",
		Message:  "all endpoints and backoff rounds exhausted",
		Cause:    cause,
	}
}

// NewRemoteError creates a non-retryable remote operation error
func NewRemoteError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryRemote,
		Code:     "REMOTE_ERROR",
		Message:  fmt.Sprintf("remote operation failed: %s", operation),
		Cause:    cause,
	}
}

// NewStorageError creates a record store error
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStorage,
		Code:     "STORAGE_ERROR",
		Message:  fmt.Sprintf("storage error during %s", operation),
		Cause:    cause,
	}
}

// NewAggregationError creates a stats recomputation error
func NewAggregationError(address string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryAggregation,
		Code:     "AGGREGATION_ERROR",
		Message:  fmt.Sprintf("failed to recompute stats for %s", address),
		Cause:    cause,
	}
}

// IsRateLimit reports whether an error is rate-limit-class and therefore
// recoverable by endpoint rotation. Opaque transport failures are treated
// conservatively as throttling because the two are indistinguishable from
// the client side.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) && catErr.Category == CategoryRateLimit {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "failed to fetch")
}

// IsExhausted reports whether an error is a rotation+backoff exhaustion
func IsExhausted(err error) bool {
	var catErr *CategorizedError
	return errors.As(err, &catErr) && catErr.Category == CategoryExhausted
}

// Category returns the category of an error, or empty for uncategorized errors
func Category(err error) ErrorCategory {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}
	return ""
}

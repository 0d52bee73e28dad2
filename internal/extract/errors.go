package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/scansheet/ocr-service/internal/models"
)

// Category is the user-facing failure taxonomy. Every raw failure from either
// backend maps to exactly one category, and every category to one fixed
// message, so callers never observe an internal error string.
type Category int

const (
	Unknown Category = iota
	NotConfigured
	InvalidCredential
	QuotaExceeded
	NetworkError
	ResponseParseError
	InitializationError
	RecognitionError
)

var categoryMessages = map[Category]string{
	NotConfigured:       "No API credential is configured. Add a credential in settings before using cloud extraction.",
	InvalidCredential:   "The extraction service rejected the API credential. Check that it is entered correctly.",
	QuotaExceeded:       "The API usage limit has been reached. Check your plan and quota.",
	NetworkError:        "Could not reach the extraction service. Check your network connection and try again.",
	ResponseParseError:  "The result could not be parsed into structured data. The image may not contain a table, receipt or list.",
	InitializationError: "The recognition engine failed to start. Please try again.",
	RecognitionError:    "No text could be recognized. The image may be blank or low quality; try a clearer, higher-contrast photo.",
	Unknown:             "Something went wrong during extraction. Please try again.",
}

// Message returns the fixed user-facing message for the category.
func (c Category) Message() string {
	if msg, ok := categoryMessages[c]; ok {
		return msg
	}
	return categoryMessages[Unknown]
}

func (c Category) String() string {
	switch c {
	case NotConfigured:
		return "not_configured"
	case InvalidCredential:
		return "invalid_credential"
	case QuotaExceeded:
		return "quota_exceeded"
	case NetworkError:
		return "network_error"
	case ResponseParseError:
		return "response_parse_error"
	case InitializationError:
		return "initialization_error"
	case RecognitionError:
		return "recognition_error"
	default:
		return "unknown"
	}
}

// ErrNotConfigured is returned by the cloud backend before any network call
// when no credential could be resolved.
var ErrNotConfigured = errors.New("no credential configured")

// CategorizedError pins a failure to a known category, bypassing substring
// matching. Engines use it where they know the failure mode precisely
// (initialization, recognition, response parsing).
type CategorizedError struct {
	Category Category
	Err      error
}

func (e *CategorizedError) Error() string {
	if e.Err == nil {
		return e.Category.String()
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// Wrap pins err to a category.
func Wrap(category Category, err error) error {
	return &CategorizedError{Category: category, Err: err}
}

// Classify maps a raw failure to its category. Pinned errors win; then typed
// errors (JSON syntax, net); then provider message substrings, mirroring how
// remote APIs report credential and quota problems.
func Classify(err error) Category {
	if err == nil {
		return Unknown
	}

	var categorized *CategorizedError
	if errors.As(err, &categorized) {
		return categorized.Category
	}
	if errors.Is(err, ErrNotConfigured) {
		return NotConfigured
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ResponseParseError
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "rate limit", "resource exhausted", "429"):
		return QuotaExceeded
	case containsAny(msg, "api key", "api_key", "credential", "unauthorized", "unauthenticated", "permission denied", "401", "403"):
		return InvalidCredential
	case containsAny(msg, "connection refused", "connection reset", "no such host", "dial tcp", "network", "timeout", "tls"):
		return NetworkError
	case containsAny(msg, "json", "unmarshal", "parse"):
		return ResponseParseError
	default:
		return Unknown
	}
}

// Fail converts a raw failure into the failure-shaped OCRResult, classifying
// it and substituting the category's fixed message.
func Fail(err error) models.OCRResult {
	return models.Failed(Classify(err).Message())
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

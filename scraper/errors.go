package scraper

import (
	"errors"
	"fmt"
)

var errEmptyBody = errors.New("empty response body")

// UnsupportedCategoryError is a caller error: the requested category code is
// not one of the supported set. Never retried.
type UnsupportedCategoryError struct {
	Category string
}

func (e *UnsupportedCategoryError) Error() string {
	return fmt.Sprintf("unsupported category %q", e.Category)
}

// SourceUnavailableError means the source site could not be reached or did
// not return a usable response (transport failure, non-success status,
// empty body). Transient; callers may fall back to cached data.
type SourceUnavailableError struct {
	URL        string
	StatusCode int // zero when the request never completed
	Err        error
}

func (e *SourceUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source unavailable: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("source unavailable: %s: %v", e.URL, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// ParseFailureError means the page was fetched but its structure did not
// match what the extractor expects, which signals an upstream layout change
// rather than an outage. Retrying the same request will not help.
type ParseFailureError struct {
	URL    string
	Reason string
}

func (e *ParseFailureError) Error() string {
	return fmt.Sprintf("parse failure on %s: %s", e.URL, e.Reason)
}

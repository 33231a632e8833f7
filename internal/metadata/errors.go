// file: internal/metadata/errors.go
// version: 1.0.0
// guid: e7a5c6f1-4036-4cdf-8243-2cfc9875b63a

package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchUnavailable marks transport failures, non-success statuses and
	// malformed responses. Callers may retry later.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrAuthFailed marks credential rejection by the provider.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNoArtwork is returned when a match carries no artwork URL.
	ErrNoArtwork = errors.New("no artwork url")
	// ErrArtworkFetchFailed is returned when every artwork download attempt failed.
	ErrArtworkFetchFailed = errors.New("artwork fetch failed")

	errMalformedResponse = errors.New("malformed response body")
)

// SearchUnavailableError carries the provider, operation and status of a
// failed request.
type SearchUnavailableError struct {
	Source     string
	Op         string
	StatusCode int
	Err        error
}

func (e *SearchUnavailableError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Source, e.Op, ErrSearchUnavailable)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SearchUnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSearchUnavailable}
	}
	return []error{ErrSearchUnavailable, e.Err}
}

// AuthError reports that the provider rejected our credentials.
type AuthError struct {
	Source string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Source, ErrAuthFailed, e.Err)
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuthFailed, e.Err} }

// ArtworkFetchError lists every URL tried for a cover.
type ArtworkFetchError struct {
	Slug     string
	Attempts []string
	Err      error
}

func (e *ArtworkFetchError) Error() string {
	return fmt.Sprintf("%v for %q after %d attempt(s): %v", ErrArtworkFetchFailed, e.Slug, len(e.Attempts), e.Err)
}

func (e *ArtworkFetchError) Unwrap() []error { return []error{ErrArtworkFetchFailed, e.Err} }

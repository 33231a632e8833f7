// file: internal/pipeline/errors.go
// version: 1.1.0
// guid: 2d8f4a61-c3b7-4e05-9a1d-6f2e8b4c7d93

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metadata"
)

var (
	// ErrNoConfidentMatch is wrapped by *NoConfidentMatchError.
	ErrNoConfidentMatch = errors.New("no confident match")
	// ErrNoResults is returned when every search came back empty.
	ErrNoResults = errors.New("no search results")
)

// NoConfidentMatchError carries the best rejected candidate so the
// operator can see how close the search got.
type NoConfidentMatchError struct {
	Artist     string
	Title      string
	BestTitle  string
	BestArtist string
	Score      int
	Threshold  int
	// Considered lists the top ranked candidates of the pass that came closest.
	Considered []RankedCandidate
}

// RankedCandidate is one scored search hit.
type RankedCandidate struct {
	Title  string
	Artist string
	Score  int
}

func (e *NoConfidentMatchError) Error() string {
	msg := fmt.Sprintf("%v for %q by %s: best was %q by %s (score %d, need %d)",
		ErrNoConfidentMatch, e.Title, e.Artist, e.BestTitle, e.BestArtist, e.Score, e.Threshold)
	if len(e.Considered) < 2 {
		return msg
	}
	others := make([]string, 0, len(e.Considered)-1)
	for _, c := range e.Considered[1:] {
		others = append(others, fmt.Sprintf("%q by %s (%d)", c.Title, c.Artist, c.Score))
	}
	return msg + "; also considered " + strings.Join(others, ", ")
}

func (e *NoConfidentMatchError) Unwrap() error { return ErrNoConfidentMatch }

// IsRetryable reports whether err came from a condition that may clear on
// its own, such as a provider outage or rate limit. Credential failures,
// parse failures and missing matches are terminal.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, metadata.ErrAuthFailed) {
		return false
	}
	return errors.Is(err, metadata.ErrSearchUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

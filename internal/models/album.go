// file: internal/models/album.go
// version: 1.0.0
// guid: 5cefc020-71dd-4a89-a081-8de28b4b62ff

package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrInvalidEntry is returned when an album entry breaks the catalog contract.
var ErrInvalidEntry = errors.New("invalid catalog entry")

// Image is a single cover image reference
type Image struct {
	URL string `json:"url"`
}

// TrackEntry represents one track on an album
type TrackEntry struct {
	ID          string `json:"id"`
	TrackNumber int    `json:"track_number"`
	Name        string `json:"name"`
	DurationMs  int    `json:"duration_ms"`
	Artists     string `json:"artists,omitempty"`
}

// CreditEntry is a hand-curated contributor credit
type CreditEntry struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// AlbumEntry is one record in the shelf catalog. Field order matches the
// serialized catalog.
type AlbumEntry struct {
	ID          string        `json:"id"`
	ExternalID  string        `json:"external_id,omitempty"`
	Source      string        `json:"source,omitempty"`
	Name        string        `json:"name"`
	Artist      string        `json:"artist"`
	ReleaseDate *string       `json:"release_date"`
	Label       string        `json:"label"`
	Images      []Image       `json:"images"`
	Tracks      []TrackEntry  `json:"tracks"`
	Credits     []CreditEntry `json:"credits"`
}

// ValidationError describes the first contract violation found on an entry.
type ValidationError struct {
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%v: %s %s", ErrInvalidEntry, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v %q: %s %s", ErrInvalidEntry, e.ID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEntry }

// TrackID returns the catalog id for a track number.
func TrackID(trackNumber int) string {
	return "t-" + strconv.Itoa(trackNumber)
}

// CoverURL returns the first image URL, or empty when there is none.
func (a *AlbumEntry) CoverURL() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// ReleaseDateString returns the release date or empty when unknown.
func (a *AlbumEntry) ReleaseDateString() string {
	if a.ReleaseDate == nil {
		return ""
	}
	return *a.ReleaseDate
}

// Validate checks the fields the site reads from every entry.
func (a *AlbumEntry) Validate() error {
	invalid := func(field, reason string) error {
		return &ValidationError{ID: a.ID, Field: field, Reason: reason}
	}
	switch {
	case a.ID == "":
		return invalid("id", "is empty")
	case a.Name == "":
		return invalid("name", "is empty")
	case a.Artist == "":
		return invalid("artist", "is empty")
	case a.CoverURL() == "":
		return invalid("images[0].url", "is missing")
	case len(a.Tracks) == 0:
		return invalid("tracks", "is empty")
	}

	seen := make(map[int]struct{}, len(a.Tracks))
	prev := 0
	for i, t := range a.Tracks {
		field := fmt.Sprintf("tracks[%d]", i)
		if t.TrackNumber <= 0 {
			return invalid(field, fmt.Sprintf("has non-positive track_number %d", t.TrackNumber))
		}
		if _, dup := seen[t.TrackNumber]; dup {
			return invalid(field, fmt.Sprintf("repeats track_number %d", t.TrackNumber))
		}
		if t.TrackNumber < prev {
			return invalid(field, "is out of order")
		}
		if t.DurationMs < 0 {
			return invalid(field, "has negative duration_ms")
		}
		seen[t.TrackNumber] = struct{}{}
		prev = t.TrackNumber
	}
	return nil
}

// SortTracks orders tracks by track number, keeping input order for equal numbers.
func SortTracks(tracks []TrackEntry) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].TrackNumber < tracks[j].TrackNumber
	})
}

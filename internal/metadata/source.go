// file: internal/metadata/source.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6

package metadata

import (
	"context"
	"strings"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/matcher"
)

// Kind is the entity type requested from a search index.
type Kind string

const (
	KindAlbum Kind = "album"
	KindSong  Kind = "song"
)

// Query describes one search. Term overrides the free-text query built from
// Artist and Title.
type Query struct {
	Artist string
	Title  string
	Term   string
	Kind   Kind
}

// SearchTerm returns the free text sent to the search index.
func (q Query) SearchTerm() string {
	if t := strings.TrimSpace(q.Term); t != "" {
		return t
	}
	return strings.TrimSpace(q.Artist + " " + q.Title)
}

// Candidate is one search hit, normalized across providers.
type Candidate struct {
	Source       string
	Kind         Kind
	ExternalID   string
	CollectionID string // parent album id for song hits, album id for album hits
	Title        string
	Artist       string
	AlbumTitle   string
	ArtworkURL   string
	DurationMs   int
	ReleaseDate  string
	Copyright    string
	Label        string
	TrackNumber  int
	DiscNumber   int
	TrackCount   int
}

// Pair returns the fields the fuzzy matcher scores.
func (c Candidate) Pair() matcher.Pair {
	return matcher.Pair{Title: c.Title, Artist: c.Artist}
}

// Pairs converts candidates for matcher.Select.
func Pairs(cands []Candidate) []matcher.Pair {
	out := make([]matcher.Pair, len(cands))
	for i, c := range cands {
		out[i] = c.Pair()
	}
	return out
}

// RawTrack is a track as reported by a provider, before numbering is fixed up.
type RawTrack struct {
	TrackNumber int
	DiscNumber  int
	Title       string
	DurationMs  int
	Artist      string
}

// Release is a matched candidate plus its full track listing.
type Release struct {
	Album  Candidate
	Tracks []RawTrack
}

// Source is a pluggable music metadata provider.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Candidate, error)
	// FetchRelease completes a matched candidate: album details, track
	// listing and artwork where the search hit did not carry them.
	FetchRelease(ctx context.Context, c Candidate) (*Release, error)
}

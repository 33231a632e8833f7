// file: internal/matcher/fuzzy.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package matcher

import (
	"sort"
	"strings"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Score weights. Title and artist scores add up, so the maximum is 180.
const (
	TitleExactScore     = 100
	TitleContainsScore  = 50
	ArtistExactScore    = 80
	ArtistContainsScore = 50
	MaxScore            = TitleExactScore + ArtistExactScore
)

// Mode selects the acceptance threshold for a search.
type Mode int

const (
	// ModeAlbum accepts a candidate at 50 points.
	ModeAlbum Mode = iota
	// ModeSong accepts a candidate at 80 points.
	ModeSong
)

// Threshold returns the minimum accepted score for the mode.
func (m Mode) Threshold() int {
	if m == ModeSong {
		return 80
	}
	return 50
}

func (m Mode) String() string {
	if m == ModeSong {
		return "song"
	}
	return "album"
}

// Accepts reports whether score clears the mode threshold. A score equal to
// the threshold is accepted.
func (m Mode) Accepts(score int) bool {
	return score >= m.Threshold()
}

// Pair is the (title, artist) view of a search candidate.
type Pair struct {
	Title  string
	Artist string
}

// Outcome is the result of selecting the best candidate.
type Outcome struct {
	Index     int // -1 when there were no candidates
	Score     int
	Threshold int
	Accepted  bool
}

// Scored is one ranked candidate.
type Scored struct {
	Index int
	Score int
}

// Normalize lowercases s, folds accents, and drops everything outside [a-z0-9].
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.ToLower(models.FoldAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// fieldScore awards exact when equal and contains when either side holds the other.
func fieldScore(expected, actual string, exact, contains int) int {
	if expected == "" || actual == "" {
		return 0
	}
	if expected == actual {
		return exact
	}
	if strings.Contains(actual, expected) || strings.Contains(expected, actual) {
		return contains
	}
	return 0
}

// Score rates a candidate against the expected title and artist.
func Score(expectedTitle, expectedArtist string, candidate Pair) int {
	return scoreNormalized(Normalize(expectedTitle), Normalize(expectedArtist), candidate)
}

func scoreNormalized(title, artist string, candidate Pair) int {
	return fieldScore(title, Normalize(candidate.Title), TitleExactScore, TitleContainsScore) +
		fieldScore(artist, Normalize(candidate.Artist), ArtistExactScore, ArtistContainsScore)
}

// Select returns the highest scoring candidate. Ties keep the earliest
// candidate, so the result depends only on the inputs and their order.
func Select(expectedTitle, expectedArtist string, candidates []Pair, mode Mode) Outcome {
	out := Outcome{Index: -1, Threshold: mode.Threshold()}
	title, artist := Normalize(expectedTitle), Normalize(expectedArtist)
	for i, c := range candidates {
		s := scoreNormalized(title, artist, c)
		if out.Index == -1 || s > out.Score {
			out.Index = i
			out.Score = s
		}
	}
	out.Accepted = out.Index >= 0 && mode.Accepts(out.Score)
	return out
}

// Rank scores every candidate and returns them by score descending, keeping
// input order among equal scores.
func Rank(expectedTitle, expectedArtist string, candidates []Pair) []Scored {
	title, artist := Normalize(expectedTitle), Normalize(expectedArtist)
	results := make([]Scored, len(candidates))
	for i, c := range candidates {
		results[i] = Scored{Index: i, Score: scoreNormalized(title, artist, c)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// file: internal/metadata/builder.go
// version: 1.0.0
// guid: d04fdec4-e13b-4ab8-aadb-2b6c229eadb9

package metadata

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/matcher"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

var (
	licensePattern  = regexp.MustCompile(`(?i)(?:exclusive\s+)?(?:global\s+)?license to\s+(.+)$`)
	afterYearParen  = regexp.MustCompile(`\)\s+(.+)$`)
	isoDurationExpr = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
)

// ExtractLabel derives a label name from a copyright notice. "(P) 2020 X
// under exclusive license to Y" yields "Y", "(P) 1975 EMI" yields the text
// after the first closing paren, and anything else is returned trimmed.
func ExtractLabel(copyright string) string {
	text := strings.TrimSpace(copyright)
	if text == "" {
		return ""
	}
	if m := licensePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := afterYearParen.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// TruncateDate reduces a provider date or timestamp to YYYY-MM-DD. Empty
// input yields nil.
func TruncateDate(s string) *string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 10 {
		s = s[:10]
	}
	if s == "" {
		return nil
	}
	return &s
}

// ParseISODuration converts an ISO-8601 duration such as "PT3M10S" to
// milliseconds. Unparseable input yields 0.
func ParseISODuration(iso string) int {
	m := isoDurationExpr.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(iso)))
	if m == nil || iso == "P" {
		return 0
	}
	part := func(s string) float64 {
		if s == "" {
			return 0
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	secs := part(m[1])*86400 + part(m[2])*3600 + part(m[3])*60 + part(m[4])
	return int(math.Round(secs * 1000))
}

// buildTracks orders raw tracks by disc then track number and assigns ids.
// Numbers that collide across discs, or are missing, are replaced with the
// running position so track numbers stay unique.
func buildTracks(raw []RawTrack, albumArtist string) []models.TrackEntry {
	sorted := make([]RawTrack, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DiscNumber != sorted[j].DiscNumber {
			return sorted[i].DiscNumber < sorted[j].DiscNumber
		}
		return sorted[i].TrackNumber < sorted[j].TrackNumber
	})

	renumber := false
	seen := make(map[int]bool, len(sorted))
	for _, t := range sorted {
		if t.TrackNumber <= 0 || seen[t.TrackNumber] {
			renumber = true
			break
		}
		seen[t.TrackNumber] = true
	}

	albumKey := matcher.Normalize(albumArtist)
	tracks := make([]models.TrackEntry, len(sorted))
	for i, t := range sorted {
		n := t.TrackNumber
		if renumber {
			n = i + 1
		}
		entry := models.TrackEntry{
			ID:          models.TrackID(n),
			TrackNumber: n,
			Name:        t.Title,
			DurationMs:  max(t.DurationMs, 0),
		}
		if t.Artist != "" && matcher.Normalize(t.Artist) != albumKey {
			entry.Artists = t.Artist
		}
		tracks[i] = entry
	}
	models.SortTracks(tracks)
	return tracks
}

// BuildEntry assembles a catalog entry from a matched release. Images are
// left empty for the cover step and credits are left nil so the catalog
// merger carries existing credits forward.
func BuildEntry(id string, rel *Release) models.AlbumEntry {
	a := rel.Album
	entry := models.AlbumEntry{
		ID:          id,
		ExternalID:  a.ExternalID,
		Source:      a.Source,
		Name:        a.Title,
		Artist:      a.Artist,
		ReleaseDate: TruncateDate(a.ReleaseDate),
		Label:       strings.TrimSpace(a.Label),
	}
	if entry.Label == "" {
		entry.Label = ExtractLabel(a.Copyright)
	}

	if a.Kind == KindAlbum && len(rel.Tracks) > 0 {
		entry.Tracks = buildTracks(rel.Tracks, a.Artist)
	} else {
		entry.Tracks = []models.TrackEntry{{
			ID:          models.TrackID(1),
			TrackNumber: 1,
			Name:        a.Title,
			DurationMs:  max(a.DurationMs, 0),
		}}
	}
	return entry
}

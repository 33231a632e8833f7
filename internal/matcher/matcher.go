// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: 1f2a3b4c-5d6e-7f8a-9b0c-1d2e3f4a5b6c

package matcher

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// LooseArtistMatch reports whether artist matches any of keys after
// normalization. Keys match as substrings or as in-order character runs, so
// "ebkjaaybo" matches "EBK Jaaybo & Lil Durk".
func LooseArtistMatch(keys []string, artist string) bool {
	target := Normalize(artist)
	if target == "" {
		return false
	}
	for _, k := range keys {
		key := Normalize(k)
		if key == "" {
			continue
		}
		if strings.Contains(target, key) || fuzzy.Match(key, target) {
			return true
		}
	}
	return false
}

// ArtistWordMatch reports whether any word of expected appears in artist,
// ignoring case. Used to filter song hits when listing parent albums.
func ArtistWordMatch(expected, artist string) bool {
	lower := strings.ToLower(artist)
	for _, w := range strings.Fields(strings.ToLower(expected)) {
		if len(w) > 1 && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ArtistKeys derives loose match keys from an artist credit: the full
// normalized name and the primary artist.
func ArtistKeys(artist string) []string {
	keys := []string{Normalize(artist)}
	if i := strings.IndexAny(artist, "&,"); i > 0 {
		keys = append(keys, Normalize(artist[:i]))
	}
	return keys
}

// file: internal/models/slug.go
// version: 1.0.0
// guid: ec88818d-13fd-44b4-9b6e-7648254cb769

package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	// "&" and featuring markers separate a lead artist from guests
	artistSplit = regexp.MustCompile(`(?i)\s*(?:&|\bfeat\.?(?:\s|$)|\bft\.?(?:\s|$)|\(feat\.?\s)`)
)

// FoldAccents strips combining marks so "Beyoncé" becomes "Beyonce".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify lowercases s and collapses everything outside [a-z0-9] into single dashes.
func Slugify(s string) string {
	s = strings.ToLower(FoldAccents(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PrimaryArtist returns the lead artist of a credit string like "A & B" or "A feat. B".
func PrimaryArtist(artist string) string {
	loc := artistSplit.FindStringIndex(artist)
	if loc == nil || loc[0] == 0 {
		return strings.TrimSpace(artist)
	}
	return strings.TrimSpace(artist[:loc[0]])
}

// EntryID builds the stable catalog id for an (artist, title) pair.
func EntryID(artist, title string) string {
	a := Slugify(PrimaryArtist(artist))
	t := Slugify(title)
	switch {
	case a == "":
		return t
	case t == "":
		return a
	}
	return a + "-" + t
}

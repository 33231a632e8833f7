// file: internal/people/people.go
// version: 1.0.0
// guid: 3d8a6f21-c47e-4b95-a0d2-6e1b9f4c7a35

// Package people builds the contributor index the site derives from
// catalog credits.
package people

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Appearance is one credit of a person on a catalog entry.
type Appearance struct {
	AlbumID     string `json:"albumId"`
	AlbumName   string `json:"albumName"`
	Artist      string `json:"artist"`
	CoverURL    string `json:"coverFilename,omitempty"`
	Role        string `json:"role"`
	ReleaseDate string `json:"releaseDate,omitempty"`
}

// Person groups every appearance credited under one slug. The name is the
// first spelling seen in catalog order.
type Person struct {
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Appearances []Appearance `json:"appearances"`
}

// Index maps person slugs to people.
type Index struct {
	bySlug map[string]*Person
	sorted []*Person
}

// Slug derives the person slug from a credit name.
func Slug(name string) string { return models.Slugify(name) }

// Build indexes the credits of entries. Appearances are ordered newest
// release first; people are ordered by name.
func Build(entries []models.AlbumEntry) *Index {
	idx := &Index{bySlug: make(map[string]*Person)}
	for _, e := range entries {
		for _, c := range e.Credits {
			slug := Slug(c.Name)
			if slug == "" {
				continue
			}
			p, ok := idx.bySlug[slug]
			if !ok {
				p = &Person{Slug: slug, Name: strings.TrimSpace(c.Name)}
				idx.bySlug[slug] = p
				idx.sorted = append(idx.sorted, p)
			}
			p.Appearances = append(p.Appearances, Appearance{
				AlbumID:     e.ID,
				AlbumName:   e.Name,
				Artist:      e.Artist,
				CoverURL:    e.CoverURL(),
				Role:        c.Role,
				ReleaseDate: e.ReleaseDateString(),
			})
		}
	}

	for _, p := range idx.sorted {
		// ISO dates sort lexically; unknown dates go last
		sort.SliceStable(p.Appearances, func(i, j int) bool {
			return p.Appearances[i].ReleaseDate > p.Appearances[j].ReleaseDate
		})
	}

	coll := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(idx.sorted, func(i, j int) bool {
		return coll.CompareString(idx.sorted[i].Name, idx.sorted[j].Name) < 0
	})
	return idx
}

// Len returns the number of people.
func (idx *Index) Len() int { return len(idx.sorted) }

// All returns every person ordered by name.
func (idx *Index) All() []*Person {
	out := make([]*Person, len(idx.sorted))
	copy(out, idx.sorted)
	return out
}

// Get returns the person for slug, or nil.
func (idx *Index) Get(slug string) *Person {
	return idx.bySlug[slug]
}

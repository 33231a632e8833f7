// file: internal/search/search.go
// version: 1.0.0
// guid: 6b1e4d97-2a5c-4f83-9c0e-7d3a8b5f2e14

// Package search provides full-text lookup over catalog entries with an
// in-memory bleve index.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Fields that can be targeted by a query.
const (
	FieldName    = "name"
	FieldArtist  = "artist"
	FieldLabel   = "label"
	FieldTracks  = "tracks"
	FieldCredits = "credits"
)

// Fields lists every indexed field.
var Fields = []string{FieldName, FieldArtist, FieldLabel, FieldTracks, FieldCredits}

// document is the indexed projection of an entry.
type document struct {
	Name    string   `json:"name"`
	Artist  string   `json:"artist"`
	Label   string   `json:"label"`
	Tracks  []string `json:"tracks"`
	Credits []string `json:"credits"`
}

func newDocument(e models.AlbumEntry) document {
	doc := document{Name: e.Name, Artist: e.Artist, Label: e.Label}
	for _, t := range e.Tracks {
		doc.Tracks = append(doc.Tracks, t.Name)
	}
	for _, c := range e.Credits {
		doc.Credits = append(doc.Credits, c.Name)
	}
	return doc
}

func indexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"

	doc := bleve.NewDocumentMapping()
	for _, f := range Fields {
		doc.AddFieldMappingsAt(f, text)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = "standard"
	return im
}

// Hit is one matching entry.
type Hit struct {
	Entry models.AlbumEntry
	Score float64
}

// Index searches a fixed set of entries.
type Index struct {
	idx     bleve.Index
	entries map[string]models.AlbumEntry
}

// Build indexes entries in memory.
func Build(entries []models.AlbumEntry) (*Index, error) {
	idx, err := bleve.NewMemOnly(indexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	out := &Index{idx: idx, entries: make(map[string]models.AlbumEntry, len(entries))}
	batch := idx.NewBatch()
	for _, e := range entries {
		if err := batch.Index(e.ID, newDocument(e)); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index %s: %w", e.ID, err)
		}
		out.entries[e.ID] = e
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}
	return out, nil
}

// Close releases the index.
func (i *Index) Close() error { return i.idx.Close() }

// Search returns entries matching every term of text, best first. An empty
// field searches all fields. limit <= 0 means 10.
func (i *Index) Search(text, field string, limit int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var q query.Query
	if field == "" {
		per := make([]query.Query, 0, len(Fields))
		for _, f := range Fields {
			per = append(per, fieldQuery(text, f))
		}
		q = bleve.NewDisjunctionQuery(per...)
	} else {
		if !validField(field) {
			return nil, fmt.Errorf("unknown search field %q (want one of %s)", field, strings.Join(Fields, ", "))
		}
		q = fieldQuery(text, field)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", text, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		if e, ok := i.entries[h.ID]; ok {
			hits = append(hits, Hit{Entry: e, Score: h.Score})
		}
	}
	return hits, nil
}

func fieldQuery(text, field string) query.Query {
	mq := bleve.NewMatchQuery(text)
	mq.SetField(field)
	mq.SetOperator(query.MatchQueryOperatorAnd)
	return mq
}

func validField(field string) bool {
	for _, f := range Fields {
		if f == field {
			return true
		}
	}
	return false
}

// file: internal/search/search_test.go
// version: 1.0.0
// guid: e4a7c2f9-5b31-4d68-8e0f-2c9b6a1d3f57

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

func fixtureEntries() []models.AlbumEntry {
	return []models.AlbumEntry{
		{
			ID: "queen-a-night-at-the-opera", Name: "A Night at the Opera", Artist: "Queen", Label: "EMI",
			Tracks: []models.TrackEntry{{Name: "Bohemian Rhapsody"}, {Name: "Love of My Life"}},
		},
		{
			ID: "ebk-jaaybo-boogieman", Name: "Boogieman", Artist: "EBK JaayBo", Label: "EBK Records",
			Tracks:  []models.TrackEntry{{Name: "Boogieman"}},
			Credits: []models.CreditEntry{{Name: "Tyler Chase", Role: "Mixing engineer"}},
		},
		{
			ID: "queen-news-of-the-world", Name: "News of the World", Artist: "Queen", Label: "EMI",
			Tracks: []models.TrackEntry{{Name: "We Will Rock You"}},
		},
	}
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Entry.ID
	}
	return out
}

func TestSearch(t *testing.T) {
	idx, err := Build(fixtureEntries())
	require.NoError(t, err)
	defer idx.Close()

	tests := []struct {
		name  string
		text  string
		field string
		want  []string
	}{
		{"artist across entries", "queen", "", []string{"queen-a-night-at-the-opera", "queen-news-of-the-world"}},
		{"track name", "bohemian rhapsody", "", []string{"queen-a-night-at-the-opera"}},
		{"credit name", "tyler", "", []string{"ebk-jaaybo-boogieman"}},
		{"label", "records", FieldLabel, []string{"ebk-jaaybo-boogieman"}},
		{"field restricts", "boogieman", FieldCredits, []string{}},
		{"all terms required", "queen boogieman", "", []string{}},
		{"case insensitive", "OPERA", FieldName, []string{"queen-a-night-at-the-opera"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(tt.text, tt.field, 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(hits))
		})
	}
}

func TestSearchLimitAndEmpty(t *testing.T) {
	idx, err := Build(fixtureEntries())
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search("queen", "", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.0)

	hits, err = idx.Search("   ", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search("queen", "genre", 5)
	assert.ErrorContains(t, err, "unknown search field")
}

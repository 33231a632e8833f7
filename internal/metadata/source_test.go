// file: internal/metadata/source_test.go
// version: 2.0.0
// guid: f6a7b8c9-d0e1-2f3a-4b5c-d6e7f8a9b0c1

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestInterfaceCompliance verifies all clients implement Source.
func TestInterfaceCompliance(t *testing.T) {
	var _ Source = (*ITunesClient)(nil)
	var _ Source = (*TidalClient)(nil)
}

func TestQuerySearchTerm(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want string
	}{
		{"artist and title", Query{Artist: "Queen", Title: "A Night at the Opera"}, "Queen A Night at the Opera"},
		{"explicit term wins", Query{Artist: "Queen", Title: "x", Term: "  Bohemian Rhapsody "}, "Bohemian Rhapsody"},
		{"title only", Query{Title: "Boogieman"}, "Boogieman"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.SearchTerm())
		})
	}
}

func TestPairs(t *testing.T) {
	pairs := Pairs([]Candidate{
		{Title: "Ego", Artist: "Aliyah's Interlude", AlbumTitle: "Ego"},
		{Title: "Boogieman", Artist: "EBK Jaaybo"},
	})
	assert.Len(t, pairs, 2)
	assert.Equal(t, "Ego", pairs[0].Title)
	assert.Equal(t, "EBK Jaaybo", pairs[1].Artist)
}

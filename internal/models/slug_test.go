// file: internal/models/slug_test.go
// version: 1.0.0
// guid: aa6f3a7f-5f7a-4dcf-b5b5-efe88483eb9f

package models

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A Night at the Opera", "a-night-at-the-opera"},
		{"  Queen  ", "queen"},
		{"AC/DC", "ac-dc"},
		{"Beyoncé", "beyonce"},
		{"Sigur Rós", "sigur-ros"},
		{"--Hello,  World!--", "hello-world"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrimaryArtist(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Queen", "Queen"},
		{"Simon & Garfunkel", "Simon"},
		{"Drake feat. Rihanna", "Drake"},
		{"Drake Feat Rihanna", "Drake"},
		{"Calvin Harris ft. Dua Lipa", "Calvin Harris"},
		{"Featherstone", "Featherstone"},
		{"Tyler, The Creator", "Tyler, The Creator"},
		{"  EBK JaayBo  ", "EBK JaayBo"},
	}
	for _, tt := range tests {
		if got := PrimaryArtist(tt.in); got != tt.want {
			t.Errorf("PrimaryArtist(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEntryID(t *testing.T) {
	tests := []struct {
		artist, title, want string
	}{
		{"Queen", "A Night at the Opera", "queen-a-night-at-the-opera"},
		{"EBK JaayBo & Lil Durk", "Boogieman", "ebk-jaaybo-boogieman"},
		{"", "Untitled", "untitled"},
		{"Solo", "", "solo"},
	}
	for _, tt := range tests {
		if got := EntryID(tt.artist, tt.title); got != tt.want {
			t.Errorf("EntryID(%q, %q) = %q, want %q", tt.artist, tt.title, got, tt.want)
		}
	}
}

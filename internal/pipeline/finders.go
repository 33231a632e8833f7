// file: internal/pipeline/finders.go
// version: 1.0.0
// guid: 5e0b7d42-a9c3-4f18-b6e5-8d2c1f7a3e90

package pipeline

import (
	"context"
	"errors"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/matcher"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metadata"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
)

// maxAlbumHits caps how many parent albums are listed per single.
const maxAlbumHits = 5

// Cover search statuses
const (
	CoverExists     = "exists"
	CoverDownloaded = "downloaded"
	CoverNotFound   = "not_found"
)

// CoverReport is the result of a cover search for one single.
type CoverReport struct {
	Slug   string
	Status string
	Path   string
	Found  *metadata.Candidate
}

func coverTerms(s Single) []string {
	if len(s.CoverSearches) > 0 {
		return s.CoverSearches
	}
	if s.Search != "" {
		return []string{s.Search}
	}
	return []string{s.Artist + " " + s.Title}
}

func artistKeys(s Single) []string {
	if len(s.ArtistKeys) > 0 {
		return s.ArtistKeys
	}
	return matcher.ArtistKeys(s.Artist)
}

// stop reports whether a search error should end a batch.
func stop(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, metadata.ErrAuthFailed)
}

// FindCovers downloads artwork for manifest singles that have no cover file
// yet. Each search term is tried as a song, then as an album; the first hit
// whose artist loosely matches the single's artist keys and carries artwork
// is downloaded.
func (in *Ingester) FindCovers(ctx context.Context, m *Manifest) ([]CoverReport, error) {
	if in.Covers == nil {
		return nil, errors.New("no cover directory configured")
	}
	bar := in.progress(len(m.Singles), "covers")
	defer func() { _ = bar.Finish() }()

	reports := make([]CoverReport, 0, len(m.Singles))
	for _, s := range m.Singles {
		slug := s.ID()
		if existing := in.Covers.Existing(slug); existing != "" {
			in.log().Infof("%s: already exists, skipping", slug)
			reports = append(reports, CoverReport{Slug: slug, Status: CoverExists, Path: existing})
			_ = bar.Add(1)
			continue
		}

		report, err := in.findCover(ctx, s, slug)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
		_ = bar.Add(1)
	}
	return reports, nil
}

func (in *Ingester) findCover(ctx context.Context, s Single, slug string) (CoverReport, error) {
	keys := artistKeys(s)
	for _, term := range coverTerms(s) {
		for _, kind := range []metadata.Kind{metadata.KindSong, metadata.KindAlbum} {
			cands, err := in.search(ctx, metadata.Query{Term: term, Kind: kind})
			if err != nil {
				if stop(ctx, err) {
					return CoverReport{}, err
				}
				in.log().Warnf("%s: %s search %q failed: %v", slug, kind, term, err)
				continue
			}

			for i := range cands {
				c := cands[i]
				if c.ArtworkURL == "" || !matcher.LooseArtistMatch(keys, c.Artist) {
					continue
				}
				in.log().Infof("%s: found %q by %s", slug, c.Title, c.Artist)
				path, err := in.Covers.Download(ctx, c.ArtworkURL, slug)
				if err != nil {
					metrics.IncCover("failed")
					if ctx.Err() != nil {
						return CoverReport{}, ctx.Err()
					}
					in.log().Warnf("%s: download failed: %v", slug, err)
					break
				}
				metrics.IncCover("downloaded")
				return CoverReport{Slug: slug, Status: CoverDownloaded, Path: path, Found: &c}, nil
			}
		}
	}
	in.log().Warnf("%s: not found on %s", slug, in.Source.Name())
	return CoverReport{Slug: slug, Status: CoverNotFound}, nil
}

// AlbumHit is one song hit together with the album it belongs to.
type AlbumHit struct {
	Track  string
	Album  string
	Artist string
}

// AlbumListing lists the parent albums found for one single.
type AlbumListing struct {
	Single Single
	Hits   []AlbumHit
	Err    error
}

// FindAlbums lists up to five song hits per single, filtered to artists
// sharing a word with the single's artist, with the album each one is on.
func (in *Ingester) FindAlbums(ctx context.Context, m *Manifest) ([]AlbumListing, error) {
	listings := make([]AlbumListing, 0, len(m.Singles))
	for _, s := range m.Singles {
		term := s.Search
		if term == "" {
			term = s.Artist + " " + s.Title
		}
		listing := AlbumListing{Single: s}

		cands, err := in.search(ctx, metadata.Query{Term: term, Kind: metadata.KindSong})
		if err != nil {
			if stop(ctx, err) {
				return listings, err
			}
			listing.Err = err
			listings = append(listings, listing)
			continue
		}

		for _, c := range cands {
			if !matcher.ArtistWordMatch(s.Artist, c.Artist) {
				continue
			}
			listing.Hits = append(listing.Hits, AlbumHit{Track: c.Title, Album: c.AlbumTitle, Artist: c.Artist})
			if len(listing.Hits) == maxAlbumHits {
				break
			}
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

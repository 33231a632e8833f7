// file: internal/pipeline/singles.go
// version: 1.0.0
// guid: c91e5b27-6d4f-4a38-8f2c-0b7e3d9a4f16

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/catalog"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/matcher"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metadata"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Single is one manifest item.
type Single struct {
	Title         string   `yaml:"title"`
	Artist        string   `yaml:"artist"`
	Credit        string   `yaml:"credit"`
	ReleaseDate   string   `yaml:"release_date"`
	Search        string   `yaml:"search"`
	CoverSearches []string `yaml:"cover_searches"`
	ArtistKeys    []string `yaml:"artist_keys"`
}

// ID is the catalog id of the single.
func (s Single) ID() string { return models.EntryID(s.Artist, s.Title) }

// Manifest lists singles credited to one person.
type Manifest struct {
	CreditName string   `yaml:"credit_name"`
	Singles    []Single `yaml:"singles"`
}

// LoadManifest reads and checks a YAML singles manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	for i, s := range m.Singles {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Artist) == "" {
			return nil, fmt.Errorf("manifest %s: single %d needs a title and an artist", path, i+1)
		}
	}
	return &m, nil
}

// Credits returns the credits the manifest assigns to s, or nil when it
// assigns none so stored credits are kept.
func (m *Manifest) Credits(s Single) []models.CreditEntry {
	if m.CreditName == "" || s.Credit == "" {
		return nil
	}
	return []models.CreditEntry{{Name: m.CreditName, Role: s.Credit}}
}

// SingleOutcome reports what happened to one manifest item.
type SingleOutcome struct {
	Single        Single
	Entry         models.AlbumEntry
	Matched       bool
	Score         int
	CoverFallback bool
	Err           error
}

// BatchResult summarizes an AddSingles run.
type BatchResult struct {
	Outcomes []SingleOutcome
	Changed  bool
}

// Matched counts items found on the provider.
func (b *BatchResult) Matched() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Matched {
			n++
		}
	}
	return n
}

func (in *Ingester) progress(n int, desc string) *progressbar.ProgressBar {
	w := in.Progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// AddSingles searches every manifest single as a song, builds one-track
// entries and merges them all in a single catalog write. Items that are
// not found keep the manifest data and a placeholder cover.
func (in *Ingester) AddSingles(ctx context.Context, m *Manifest) (*BatchResult, error) {
	result := &BatchResult{}
	bar := in.progress(len(m.Singles), "singles")

	for _, s := range m.Singles {
		outcome, err := in.buildSingle(ctx, m, s)
		if err != nil {
			return nil, err
		}
		result.Outcomes = append(result.Outcomes, outcome)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	changed, err := in.Store.Update(ctx, func(doc *catalog.Document) error {
		for _, o := range result.Outcomes {
			if _, err := doc.Upsert(o.Entry, in.Placement); err != nil {
				return fmt.Errorf("failed to merge %s: %w", o.Entry.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Changed = changed
	in.log().Infof("merged %d singles (%d matched)", len(result.Outcomes), result.Matched())
	return result, nil
}

// buildSingle only returns an error for conditions that should stop the
// whole batch.
func (in *Ingester) buildSingle(ctx context.Context, m *Manifest, s Single) (SingleOutcome, error) {
	primary := models.PrimaryArtist(s.Artist)
	out := SingleOutcome{Single: s}

	cands, err := in.search(ctx, metadata.Query{Artist: primary, Title: s.Title, Term: s.Search, Kind: metadata.KindSong})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, metadata.ErrAuthFailed) {
			return out, err
		}
		in.log().Warnf("%s: search failed, using manifest data: %v", s.Title, err)
		out.Err = err
	}

	var match *metadata.Candidate
	if len(cands) > 0 {
		outcome := matcher.Select(s.Title, primary, metadata.Pairs(cands), matcher.ModeSong)
		metrics.IncMatch(matcher.ModeSong.String(), outcome.Accepted)
		out.Score = outcome.Score
		if outcome.Accepted {
			match = &cands[outcome.Index]
		}
	}

	id := s.ID()
	entry := models.AlbumEntry{
		ID:          id,
		Name:        s.Title,
		Artist:      s.Artist,
		ReleaseDate: metadata.TruncateDate(s.ReleaseDate),
		Tracks: []models.TrackEntry{{
			ID:          models.TrackID(1),
			TrackNumber: 1,
			Name:        s.Title,
			Artists:     s.Artist,
		}},
		Credits: m.Credits(s),
	}

	artwork := ""
	if match != nil {
		out.Matched = true
		in.log().Infof("%s: found %q by %s", s.Title, match.Title, match.Artist)
		entry.ExternalID = match.ExternalID
		entry.Source = match.Source
		entry.Label = strings.TrimSpace(match.Label)
		if entry.Label == "" {
			entry.Label = metadata.ExtractLabel(match.Copyright)
		}
		if entry.ReleaseDate == nil {
			entry.ReleaseDate = metadata.TruncateDate(match.ReleaseDate)
		}
		entry.Tracks[0].DurationMs = max(match.DurationMs, 0)
		if match.Artist != "" {
			entry.Tracks[0].Artists = match.Artist
		}
		artwork = match.ArtworkURL
	} else {
		in.log().Warnf("%s: not found on %s, using manifest data", s.Title, in.Source.Name())
	}

	if artwork != "" {
		cover, fallback := in.cover(ctx, artwork, id)
		entry.Images = []models.Image{{URL: cover}}
		out.CoverFallback = fallback
	} else if in.Covers != nil {
		url := in.Covers.Existing(id)
		out.CoverFallback = url == ""
		if url == "" {
			url = in.Covers.Placeholder(id)
		}
		entry.Images = []models.Image{{URL: url}}
	}

	out.Entry = entry
	return out, nil
}

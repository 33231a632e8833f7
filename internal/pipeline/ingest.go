// file: internal/pipeline/ingest.go
// version: 1.1.0
// guid: 7a3e9c15-4b82-4f6d-b0e7-1c5d8a2f6e39

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/catalog"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/matcher"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metadata"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
)

// Ingester runs search, match, build, cover download and merge for one
// request at a time.
type Ingester struct {
	Source    metadata.Source
	Covers    *metadata.CoverDownloader
	Store     *catalog.Store
	Placement catalog.Placement
	// Limiter paces provider calls. Nil means no pacing.
	Limiter *rate.Limiter
	Log     *logger.Logger
	// Progress receives batch progress bars. Nil discards them.
	Progress  io.Writer
	SkipCover bool
	// DryRun leaves the covers directory alone: an existing cover or the
	// placeholder path is used. The catalog store has its own DryRun.
	DryRun bool
}

// NewIngester wires an ingester with the default placement and no pacing.
func NewIngester(src metadata.Source, covers *metadata.CoverDownloader, store *catalog.Store) *Ingester {
	return &Ingester{
		Source:    src,
		Covers:    covers,
		Store:     store,
		Placement: catalog.PlacementPreserve,
		Log:       logger.Discard(),
	}
}

// AlbumRequest names the record to ingest. Credits, when set, replace the
// credits already stored for the entry.
type AlbumRequest struct {
	Artist  string
	Title   string
	Credits []models.CreditEntry
}

// Match is the accepted candidate of a search pass.
type Match struct {
	Candidate metadata.Candidate
	Mode      matcher.Mode
	Score     int
}

// Result is the outcome of one ingestion.
type Result struct {
	Entry         models.AlbumEntry
	Match         Match
	Merge         catalog.MergeResult
	Changed       bool
	CoverFallback bool
}

func (in *Ingester) log() *logger.Logger {
	if in.Log == nil {
		return logger.Discard()
	}
	return in.Log
}

func (in *Ingester) wait(ctx context.Context) error {
	if in.Limiter == nil {
		return ctx.Err()
	}
	return in.Limiter.Wait(ctx)
}

// search paces and counts one provider search.
func (in *Ingester) search(ctx context.Context, q metadata.Query) ([]metadata.Candidate, error) {
	if err := in.wait(ctx); err != nil {
		return nil, err
	}
	cands, err := in.Source.Search(ctx, q)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(cands) == 0:
		outcome = "empty"
	}
	metrics.IncSearch(in.Source.Name(), string(q.Kind), outcome)
	return cands, err
}

// FindMatch searches albums first and falls back to songs. A search that
// fails as unavailable falls through to the next pass; authentication
// failures and cancellation stop immediately.
func (in *Ingester) FindMatch(ctx context.Context, req AlbumRequest) (*Match, error) {
	passes := []struct {
		kind metadata.Kind
		mode matcher.Mode
	}{
		{metadata.KindAlbum, matcher.ModeAlbum},
		{metadata.KindSong, matcher.ModeSong},
	}

	var (
		lastErr error
		best    *NoConfidentMatchError
	)
	for _, p := range passes {
		stage := in.log().Stage("search:"+string(p.kind), req.Artist+" - "+req.Title)
		stage.LogStart()

		cands, err := in.search(ctx, metadata.Query{Artist: req.Artist, Title: req.Title, Kind: p.kind})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, metadata.ErrAuthFailed) {
				stage.LogError(err)
				return nil, err
			}
			stage.LogWarning("search failed, trying next pass: %v", err)
			lastErr = err
			continue
		}
		if len(cands) == 0 {
			stage.LogWarning("no %s results", p.kind)
			continue
		}

		outcome := matcher.Select(req.Title, req.Artist, metadata.Pairs(cands), p.mode)
		metrics.IncMatch(p.mode.String(), outcome.Accepted)
		top := cands[outcome.Index]
		if outcome.Accepted {
			stage.LogSuccess(fmt.Sprintf("%q by %s (score %d/%d)", top.Title, top.Artist, outcome.Score, outcome.Threshold))
			return &Match{Candidate: top, Mode: p.mode, Score: outcome.Score}, nil
		}

		stage.LogWarning("best %q by %s scored %d, below %d", top.Title, top.Artist, outcome.Score, outcome.Threshold)
		if best == nil || outcome.Score > best.Score {
			best = &NoConfidentMatchError{
				Artist: req.Artist, Title: req.Title,
				BestTitle: top.Title, BestArtist: top.Artist,
				Score: outcome.Score, Threshold: outcome.Threshold,
				Considered: rankedCandidates(req, cands, maxConsidered),
			}
		}
	}

	// An outage on any pass means the empty passes prove nothing.
	switch {
	case best != nil:
		return nil, best
	case lastErr != nil:
		return nil, lastErr
	default:
		return nil, fmt.Errorf("%w for %q by %s", ErrNoResults, req.Title, req.Artist)
	}
}

// maxConsidered bounds the candidates listed in a no-match error.
const maxConsidered = 3

// rankedCandidates returns the n best scored candidates for req.
func rankedCandidates(req AlbumRequest, cands []metadata.Candidate, n int) []RankedCandidate {
	ranked := matcher.Rank(req.Title, req.Artist, metadata.Pairs(cands))
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]RankedCandidate, len(ranked))
	for i, r := range ranked {
		c := cands[r.Index]
		out[i] = RankedCandidate{Title: c.Title, Artist: c.Artist, Score: r.Score}
	}
	return out
}

// BuildEntry matches req, completes the release and assembles the entry
// with its cover path. The catalog is not touched.
func (in *Ingester) BuildEntry(ctx context.Context, req AlbumRequest) (*Result, error) {
	req.Artist = strings.TrimSpace(req.Artist)
	req.Title = strings.TrimSpace(req.Title)
	if req.Artist == "" || req.Title == "" {
		return nil, errors.New("artist and title are required")
	}

	match, err := in.FindMatch(ctx, req)
	if err != nil {
		return nil, err
	}

	release, err := in.fetchRelease(ctx, match.Candidate)
	if err != nil {
		return nil, err
	}

	id := models.EntryID(req.Artist, req.Title)
	entry := metadata.BuildEntry(id, release)
	if req.Credits != nil {
		entry.Credits = req.Credits
	}

	res := &Result{Match: *match}
	cover, fallback := in.cover(ctx, release.Album.ArtworkURL, id)
	entry.Images = []models.Image{{URL: cover}}
	res.CoverFallback = fallback
	res.Entry = entry

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// fetchRelease completes an album match with its track listing. Failures
// other than authentication and cancellation degrade to a single track.
func (in *Ingester) fetchRelease(ctx context.Context, cand metadata.Candidate) (*metadata.Release, error) {
	stage := in.log().Stage("fetch", cand.Title)
	stage.LogStart()
	if err := in.wait(ctx); err != nil {
		return nil, err
	}
	release, err := in.Source.FetchRelease(ctx, cand)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, metadata.ErrAuthFailed) {
			stage.LogError(err)
			return nil, err
		}
		stage.LogWarning("track listing unavailable, using the matched record only: %v", err)
		return &metadata.Release{Album: cand}, nil
	}
	stage.LogSuccess(fmt.Sprintf("%d tracks", len(release.Tracks)))
	return release, nil
}

// cover downloads artwork for slug. It never fails: when nothing can be
// downloaded an existing file or the placeholder path is used.
func (in *Ingester) cover(ctx context.Context, artworkURL, slug string) (string, bool) {
	if in.Covers == nil {
		return "", true
	}
	if in.SkipCover || in.DryRun {
		if existing := in.Covers.Existing(slug); existing != "" {
			return existing, false
		}
		metrics.IncCover("skipped")
		return in.Covers.Placeholder(slug), true
	}

	stage := in.log().Stage("cover", slug)
	stage.LogStart()
	rel, err := in.Covers.Download(ctx, artworkURL, slug)
	if err == nil {
		metrics.IncCover("downloaded")
		stage.LogSuccess(rel)
		return rel, false
	}

	if errors.Is(err, metadata.ErrNoArtwork) {
		metrics.IncCover("missing")
	} else {
		metrics.IncCover("failed")
	}
	if existing := in.Covers.Existing(slug); existing != "" {
		stage.LogWarning("keeping existing cover %s: %v", existing, err)
		return existing, false
	}
	stage.LogWarning("using placeholder: %v", err)
	return in.Covers.Placeholder(slug), true
}

// IngestAlbum builds the entry for req and merges it into the catalog.
func (in *Ingester) IngestAlbum(ctx context.Context, req AlbumRequest) (*Result, error) {
	res, err := in.BuildEntry(ctx, req)
	if err != nil {
		return nil, err
	}

	stage := in.log().Stage("merge", res.Entry.ID)
	stage.LogStart()
	changed, err := in.Store.Update(ctx, func(doc *catalog.Document) error {
		merge, err := doc.Upsert(res.Entry, in.Placement)
		if err != nil {
			return err
		}
		res.Merge = merge
		return nil
	})
	if err != nil {
		stage.LogError(err)
		return nil, err
	}
	res.Changed = changed

	action := "updated"
	if res.Merge.Created {
		action = "created"
	}
	detail := fmt.Sprintf("%s at position %d", action, res.Merge.Index)
	if res.Merge.CreditsCarried {
		detail += ", credits kept"
	}
	if res.Merge.DuplicatesRemoved > 0 {
		detail += fmt.Sprintf(", %d duplicates removed", res.Merge.DuplicatesRemoved)
	}
	stage.LogSuccess(detail)
	return res, nil
}

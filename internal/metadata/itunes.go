// file: internal/metadata/itunes.go
// version: 1.1.0
// guid: fbb2320a-9193-4119-b798-62616ef01560

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/cache"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

// ITunesClient searches the public iTunes Search API.
type ITunesClient struct {
	httpClient *http.Client
	baseURL    string
	country    string
	limit      int
	fetch      fetcher
}

// NewITunesClient creates a client for https://itunes.apple.com, or
// ITUNES_BASE_URL when set.
func NewITunesClient() *ITunesClient {
	baseURL := os.Getenv("ITUNES_BASE_URL")
	if baseURL == "" {
		baseURL = "https://itunes.apple.com"
	}
	return NewITunesClientWithBaseURL(baseURL)
}

// NewITunesClientWithBaseURL creates a client with a custom base URL.
func NewITunesClientWithBaseURL(baseURL string) *ITunesClient {
	return &ITunesClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		country: "US",
		limit:   20,
		fetch:   fetcher{source: "itunes"},
	}
}

// Name returns the display name for this metadata source.
func (c *ITunesClient) Name() string {
	return "itunes"
}

// SetCache attaches a lookup cache for search and lookup responses.
func (c *ITunesClient) SetCache(s cache.Store) { c.fetch.cache = s }

// SetLogger routes client diagnostics to l.
func (c *ITunesClient) SetLogger(l *logger.Logger) { c.fetch.log = l }

// SetCountry sets the storefront country code.
func (c *ITunesClient) SetCountry(country string) {
	if country != "" {
		c.country = strings.ToUpper(country)
	}
}

// SetHTTPClient replaces the HTTP client, for custom timeouts or tests.
func (c *ITunesClient) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// HTTPClient returns the client used for requests.
func (c *ITunesClient) HTTPClient() *http.Client { return c.httpClient }

type itunesResult struct {
	WrapperType     string `json:"wrapperType"`
	Kind            string `json:"kind"`
	CollectionID    int64  `json:"collectionId"`
	TrackID         int64  `json:"trackId"`
	ArtistName      string `json:"artistName"`
	CollectionName  string `json:"collectionName"`
	TrackName       string `json:"trackName"`
	ArtworkURL100   string `json:"artworkUrl100"`
	TrackTimeMillis int    `json:"trackTimeMillis"`
	ReleaseDate     string `json:"releaseDate"`
	Copyright       string `json:"copyright"`
	TrackNumber     int    `json:"trackNumber"`
	DiscNumber      int    `json:"discNumber"`
	TrackCount      int    `json:"trackCount"`
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func (r itunesResult) isCollection() bool { return r.WrapperType == "collection" }
func (r itunesResult) isSong() bool {
	return r.WrapperType == "track" && (r.Kind == "" || r.Kind == "song")
}

func (r itunesResult) albumCandidate() Candidate {
	return Candidate{
		Source:       "itunes",
		Kind:         KindAlbum,
		ExternalID:   idString(r.CollectionID),
		CollectionID: idString(r.CollectionID),
		Title:        r.CollectionName,
		Artist:       r.ArtistName,
		AlbumTitle:   r.CollectionName,
		ArtworkURL:   r.ArtworkURL100,
		ReleaseDate:  r.ReleaseDate,
		Copyright:    r.Copyright,
		TrackCount:   r.TrackCount,
	}
}

func (r itunesResult) songCandidate() Candidate {
	return Candidate{
		Source:       "itunes",
		Kind:         KindSong,
		ExternalID:   idString(r.TrackID),
		CollectionID: idString(r.CollectionID),
		Title:        r.TrackName,
		Artist:       r.ArtistName,
		AlbumTitle:   r.CollectionName,
		ArtworkURL:   r.ArtworkURL100,
		DurationMs:   r.TrackTimeMillis,
		ReleaseDate:  r.ReleaseDate,
		Copyright:    r.Copyright,
		TrackNumber:  r.TrackNumber,
		DiscNumber:   r.DiscNumber,
		TrackCount:   r.TrackCount,
	}
}

func (c *ITunesClient) get(ctx context.Context, op string, params url.Values) (*itunesResponse, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, op, params.Encode())
	body, err := c.fetch.getJSON(ctx, c.httpClient, op, reqURL)
	if err != nil {
		return nil, err
	}
	var resp itunesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SearchUnavailableError{Source: c.Name(), Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &resp, nil
}

// Search runs an album or song search and returns hits in API order.
func (c *ITunesClient) Search(ctx context.Context, q Query) ([]Candidate, error) {
	entity := "album"
	if q.Kind == KindSong {
		entity = "song"
	}
	params := url.Values{}
	params.Set("term", q.SearchTerm())
	params.Set("entity", entity)
	params.Set("media", "music")
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("country", c.country)

	resp, err := c.get(ctx, "search", params)
	if err != nil {
		return nil, err
	}

	results := make([]Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		switch {
		case q.Kind == KindSong && r.isSong():
			results = append(results, r.songCandidate())
		case q.Kind != KindSong && r.isCollection():
			results = append(results, r.albumCandidate())
		}
	}
	return results, nil
}

// FetchRelease looks up the album's track listing. Song hits already carry
// everything a single-track entry needs and are returned without a request.
func (c *ITunesClient) FetchRelease(ctx context.Context, cand Candidate) (*Release, error) {
	if cand.Kind == KindSong {
		return &Release{Album: cand}, nil
	}
	if cand.CollectionID == "" {
		return nil, fmt.Errorf("itunes lookup: candidate %q has no collection id", cand.Title)
	}

	params := url.Values{}
	params.Set("id", cand.CollectionID)
	params.Set("entity", "song")
	params.Set("country", c.country)

	resp, err := c.get(ctx, "lookup", params)
	if err != nil {
		return nil, err
	}

	rel := &Release{Album: cand}
	for _, r := range resp.Results {
		switch {
		case r.isCollection():
			info := r.albumCandidate()
			if rel.Album.Copyright == "" {
				rel.Album.Copyright = info.Copyright
			}
			if rel.Album.ReleaseDate == "" {
				rel.Album.ReleaseDate = info.ReleaseDate
			}
			if rel.Album.ArtworkURL == "" {
				rel.Album.ArtworkURL = info.ArtworkURL
			}
			if rel.Album.TrackCount == 0 {
				rel.Album.TrackCount = info.TrackCount
			}
		case r.isSong():
			rel.Tracks = append(rel.Tracks, RawTrack{
				TrackNumber: r.TrackNumber,
				DiscNumber:  r.DiscNumber,
				Title:       r.TrackName,
				DurationMs:  r.TrackTimeMillis,
				Artist:      r.ArtistName,
			})
		}
	}
	return rel, nil
}

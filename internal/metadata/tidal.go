// file: internal/metadata/tidal.go
// version: 1.1.0
// guid: 6b86c7d7-f923-4522-b7a6-82dc7497e07e

package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/cache"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

const (
	defaultTidalAPIURL  = "https://openapi.tidal.com/v2"
	defaultTidalAuthURL = "https://auth.tidal.com/v1/oauth2/token"
	tidalMaxItemPages   = 20
)

// TidalClient talks to the TIDAL JSON:API catalog with client credentials.
type TidalClient struct {
	httpClient *http.Client // used for the token request and as the API transport base
	apiURL     string
	authURL    string
	country    string
	creds      clientcredentials.Config
	fetch      fetcher

	mu  sync.Mutex
	api *http.Client
}

// NewTidalClient creates a client against the public TIDAL endpoints.
func NewTidalClient(clientID, clientSecret string) *TidalClient {
	return NewTidalClientWithURLs(defaultTidalAPIURL, defaultTidalAuthURL, clientID, clientSecret)
}

// NewTidalClientWithURLs creates a client with custom API and token URLs.
func NewTidalClientWithURLs(apiURL, authURL, clientID, clientSecret string) *TidalClient {
	return &TidalClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiURL:  strings.TrimRight(apiURL, "/"),
		authURL: authURL,
		country: "US",
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     authURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		fetch: fetcher{
			source:  "tidal",
			headers: map[string]string{"Accept": "application/vnd.api+json"},
		},
	}
}

// Name returns the display name for this metadata source.
func (c *TidalClient) Name() string {
	return "tidal"
}

// SetCache attaches a lookup cache for API responses.
func (c *TidalClient) SetCache(s cache.Store) { c.fetch.cache = s }

// SetLogger routes client diagnostics to l.
func (c *TidalClient) SetLogger(l *logger.Logger) { c.fetch.log = l }

// SetCountry sets the catalog country code.
func (c *TidalClient) SetCountry(country string) {
	if country != "" {
		c.country = strings.ToUpper(country)
	}
}

// SetHTTPClient replaces the base HTTP client, for custom timeouts or tests.
func (c *TidalClient) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// HTTPClient returns the base HTTP client.
func (c *TidalClient) HTTPClient() *http.Client { return c.httpClient }

// Authenticate obtains an access token. It is called lazily by the first API
// request; calling it up front surfaces credential problems before any search.
func (c *TidalClient) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return nil
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.creds.Token(tokenCtx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tidal auth: %w", ctx.Err())
		}
		return &AuthError{Source: c.Name(), Err: err}
	}
	c.fetch.log.Debugf("tidal: access token obtained, expires %s", tok.Expiry.Format(time.RFC3339))

	// Refreshes reuse the token client but must outlive the caller's context.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	c.api = &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(tok, c.creds.TokenSource(refreshCtx)),
			Base:   c.httpClient.Transport,
		},
	}
	return nil
}

func (c *TidalClient) get(ctx context.Context, op, path string, params url.Values) (gjson.Result, error) {
	if err := c.Authenticate(ctx); err != nil {
		return gjson.Result{}, err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("countryCode", c.country)
	reqURL := c.apiURL + path + "?" + params.Encode()
	return c.getURL(ctx, op, reqURL)
}

func (c *TidalClient) getURL(ctx context.Context, op, reqURL string) (gjson.Result, error) {
	body, err := c.fetch.getJSON(ctx, c.api, op, reqURL)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

// included indexes JSON:API included resources by "type:id".
type included map[string]gjson.Result

func indexIncluded(doc gjson.Result) included {
	idx := make(included)
	doc.Get("included").ForEach(func(_, r gjson.Result) bool {
		idx[r.Get("type").String()+":"+r.Get("id").String()] = r
		return true
	})
	return idx
}

func (inc included) get(typ, id string) (gjson.Result, bool) {
	r, ok := inc[typ+":"+id]
	return r, ok
}

// artistNames resolves a resource's artist relationship to display names.
func (inc included) artistNames(resource gjson.Result) string {
	var names []string
	resource.Get("relationships.artists.data").ForEach(func(_, ref gjson.Result) bool {
		if a, ok := inc.get("artists", ref.Get("id").String()); ok {
			if n := a.Get("attributes.name").String(); n != "" {
				names = append(names, n)
			}
		}
		return true
	})
	return strings.Join(names, ", ")
}

func copyrightText(attrs gjson.Result) string {
	cr := attrs.Get("copyright")
	if cr.IsObject() {
		return cr.Get("text").String()
	}
	return cr.String()
}

func (c *TidalClient) candidateFrom(kind Kind, id string, resource gjson.Result, inc included) Candidate {
	attrs := resource.Get("attributes")
	cand := Candidate{
		Source:      c.Name(),
		Kind:        kind,
		ExternalID:  id,
		Title:       attrs.Get("title").String(),
		Artist:      inc.artistNames(resource),
		ReleaseDate: attrs.Get("releaseDate").String(),
		Copyright:   copyrightText(attrs),
		TrackCount:  int(attrs.Get("numberOfItems").Int()),
	}
	if kind == KindAlbum {
		cand.CollectionID = id
		cand.AlbumTitle = cand.Title
	} else {
		cand.DurationMs = ParseISODuration(attrs.Get("duration").String())
		cand.CollectionID = resource.Get("relationships.albums.data.0.id").String()
	}
	return cand
}

// Search queries /searchResults and returns hits of the requested kind,
// top hits first.
func (c *TidalClient) Search(ctx context.Context, q Query) ([]Candidate, error) {
	params := url.Values{}
	params.Set("include", "topHits")
	doc, err := c.get(ctx, "search", "/searchResults/"+url.PathEscape(q.SearchTerm()), params)
	if err != nil {
		return nil, err
	}

	typ, kind := "albums", KindAlbum
	if q.Kind == KindSong {
		typ, kind = "tracks", KindSong
	}

	inc := indexIncluded(doc)
	seen := make(map[string]bool)
	var results []Candidate

	doc.Get("data.relationships.topHits.data").ForEach(func(_, hit gjson.Result) bool {
		if hit.Get("type").String() != typ {
			return true
		}
		id := hit.Get("id").String()
		if seen[id] {
			return true
		}
		seen[id] = true
		// A hit without included data still yields a candidate; it scores 0 on
		// title and is only picked if nothing better exists.
		res, _ := inc.get(typ, id)
		results = append(results, c.candidateFrom(kind, id, res, inc))
		return true
	})
	doc.Get("included").ForEach(func(_, r gjson.Result) bool {
		id := r.Get("id").String()
		if r.Get("type").String() == typ && !seen[id] {
			seen[id] = true
			results = append(results, c.candidateFrom(kind, id, r, inc))
		}
		return true
	})
	return results, nil
}

// FetchRelease loads album attributes, every track page and the largest
// cover image. For song hits only the parent album's cover is fetched.
func (c *TidalClient) FetchRelease(ctx context.Context, cand Candidate) (*Release, error) {
	if cand.Kind == KindSong {
		rel := &Release{Album: cand}
		if cand.ArtworkURL == "" && cand.CollectionID != "" {
			art, err := c.coverArt(ctx, cand.CollectionID)
			if err != nil {
				c.fetch.log.Warnf("tidal: cover art lookup for album %s failed: %v", cand.CollectionID, err)
			}
			rel.Album.ArtworkURL = art
		}
		return rel, nil
	}
	if cand.ExternalID == "" {
		return nil, fmt.Errorf("tidal album: candidate %q has no id", cand.Title)
	}

	params := url.Values{}
	params.Set("include", "items,artists")
	doc, err := c.get(ctx, "album", "/albums/"+url.PathEscape(cand.ExternalID), params)
	if err != nil {
		return nil, err
	}
	data := doc.Get("data")
	if !data.Exists() {
		return nil, &SearchUnavailableError{Source: c.Name(), Op: "album", Err: errMalformedResponse}
	}

	album := c.candidateFrom(KindAlbum, cand.ExternalID, data, indexIncluded(doc))
	if album.Artist == "" {
		album.Artist = cand.Artist
	}
	if album.Title == "" {
		album.Title = cand.Title
	}
	rel := &Release{Album: album}

	tracks, err := c.items(ctx, cand.ExternalID)
	if err != nil {
		return nil, err
	}
	rel.Tracks = tracks

	art, err := c.coverArt(ctx, cand.ExternalID)
	if err != nil {
		c.fetch.log.Warnf("tidal: cover art lookup for album %s failed: %v", cand.ExternalID, err)
	}
	rel.Album.ArtworkURL = art
	return rel, nil
}

// items walks the album items relationship, following links.next.
func (c *TidalClient) items(ctx context.Context, albumID string) ([]RawTrack, error) {
	params := url.Values{}
	params.Set("include", "items.artists")
	doc, err := c.get(ctx, "album items", "/albums/"+url.PathEscape(albumID)+"/relationships/items", params)
	if err != nil {
		return nil, err
	}

	var tracks []RawTrack
	for page := 1; ; page++ {
		inc := indexIncluded(doc)
		doc.Get("data").ForEach(func(_, ref gjson.Result) bool {
			if ref.Get("type").String() != "tracks" {
				return true
			}
			res, ok := inc.get("tracks", ref.Get("id").String())
			if !ok {
				return true
			}
			attrs := res.Get("attributes")
			tracks = append(tracks, RawTrack{
				TrackNumber: int(ref.Get("meta.trackNumber").Int()),
				DiscNumber:  int(ref.Get("meta.volumeNumber").Int()),
				Title:       attrs.Get("title").String(),
				DurationMs:  ParseISODuration(attrs.Get("duration").String()),
				Artist:      inc.artistNames(res),
			})
			return true
		})

		next := doc.Get("links.next").String()
		if next == "" {
			break
		}
		if page >= tidalMaxItemPages {
			c.fetch.log.Warnf("tidal: album %s has more than %d item pages, truncating", albumID, tidalMaxItemPages)
			break
		}
		doc, err = c.getURL(ctx, "album items", c.resolve(next))
		if err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

// resolve turns a JSON:API link into an absolute URL.
func (c *TidalClient) resolve(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	base, err := url.Parse(c.apiURL)
	if err != nil {
		return c.apiURL + link
	}
	if strings.HasPrefix(link, base.Path+"/") {
		return base.Scheme + "://" + base.Host + link
	}
	return c.apiURL + "/" + strings.TrimLeft(link, "/")
}

// coverArt returns the href of the widest artwork file for an album.
func (c *TidalClient) coverArt(ctx context.Context, albumID string) (string, error) {
	params := url.Values{}
	params.Set("include", "coverArt")
	doc, err := c.get(ctx, "cover art", "/albums/"+url.PathEscape(albumID)+"/relationships/coverArt", params)
	if err != nil {
		return "", err
	}

	var best string
	var bestWidth int64 = -1
	doc.Get("included").ForEach(func(_, r gjson.Result) bool {
		if r.Get("type").String() != "artworks" {
			return true
		}
		r.Get("attributes.files").ForEach(func(_, f gjson.Result) bool {
			if w := f.Get("meta.width").Int(); w > bestWidth && f.Get("href").String() != "" {
				best, bestWidth = f.Get("href").String(), w
			}
			return true
		})
		// first artwork only
		return false
	})
	return best, nil
}

// file: internal/metadata/cover.go
// version: 2.1.0
// guid: 4efaa7b8-e29a-47f3-84f7-39b46bfc9a01

package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

const (
	maxCoverBytes   = 20 << 20
	lowResArtwork   = "100x100"
	defaultCoverExt = "jpg"
)

var (
	coverExtPattern = regexp.MustCompile(`(?i)\.(png|webp|jpg|jpeg)(\?|$)`)
	coverExts       = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// CoverDownloader saves cover art as {dir}/{slug}.{ext} and returns the
// site-relative URL {urlPrefix}{slug}.{ext}.
type CoverDownloader struct {
	httpClient *http.Client
	dir        string
	urlPrefix  string
	sizes      []string
	log        *logger.Logger
}

// NewCoverDownloader creates a downloader that upgrades low resolution
// artwork URLs to 3000x3000, then 600x600.
func NewCoverDownloader(dir, urlPrefix string) *CoverDownloader {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &CoverDownloader{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dir:       dir,
		urlPrefix: urlPrefix,
		sizes:     []string{"3000x3000", "600x600"},
	}
}

// SetLogger routes download diagnostics to l.
func (d *CoverDownloader) SetLogger(l *logger.Logger) { d.log = l }

// SetHTTPClient replaces the HTTP client, for custom timeouts or tests.
func (d *CoverDownloader) SetHTTPClient(hc *http.Client) { d.httpClient = hc }

// Dir returns the directory covers are written to.
func (d *CoverDownloader) Dir() string { return d.dir }

// RelativeURL returns the site URL for a cover file name.
func (d *CoverDownloader) RelativeURL(filename string) string {
	return d.urlPrefix + filename
}

// Placeholder returns the URL an entry uses when no cover could be saved.
func (d *CoverDownloader) Placeholder(slug string) string {
	return d.RelativeURL(slug + "." + defaultCoverExt)
}

// Existing returns the site URL of an already saved cover for slug, or "".
func (d *CoverDownloader) Existing(slug string) string {
	for _, ext := range coverExts {
		name := slug + ext
		if info, err := os.Stat(filepath.Join(d.dir, name)); err == nil && info.Size() > 0 {
			return d.RelativeURL(name)
		}
	}
	return ""
}

// CandidateURLs returns the URLs to try for artworkURL, best quality first.
func (d *CoverDownloader) CandidateURLs(artworkURL string) []string {
	if !strings.Contains(artworkURL, lowResArtwork) {
		return []string{artworkURL}
	}
	urls := make([]string, 0, len(d.sizes)+1)
	seen := make(map[string]bool)
	for _, size := range append(append([]string{}, d.sizes...), lowResArtwork) {
		u := strings.Replace(artworkURL, lowResArtwork, size, 1)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// Download fetches artworkURL, trying upgraded resolutions first, and saves
// it under slug. It returns the site URL of the saved file.
func (d *CoverDownloader) Download(ctx context.Context, artworkURL, slug string) (string, error) {
	if artworkURL == "" {
		return "", ErrNoArtwork
	}
	if slug == "" {
		return "", fmt.Errorf("empty cover slug")
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create covers directory: %w", err)
	}

	attempts := d.CandidateURLs(artworkURL)
	var errs []error
	for _, u := range attempts {
		name, size, err := d.fetch(ctx, u, slug)
		if err == nil {
			d.log.Infof("saved cover %s (%s)", name, humanize.Bytes(uint64(size)))
			return d.RelativeURL(name), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.log.Debugf("cover attempt %s failed: %v", u, err)
		errs = append(errs, err)
	}
	return "", &ArtworkFetchError{Slug: slug, Attempts: attempts, Err: errors.Join(errs...)}
}

func (d *CoverDownloader) fetch(ctx context.Context, rawURL, slug string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build cover request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to download cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("cover download returned status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.HasPrefix(contentType, "image/") &&
		!strings.HasPrefix(contentType, "application/octet-stream") {
		return "", 0, fmt.Errorf("unexpected content type: %s", contentType)
	}

	name := slug + "." + coverExtension(rawURL, contentType)
	tmp, err := os.CreateTemp(d.dir, "."+slug+"-*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create cover file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxCoverBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to write cover file: %w", err)
	}
	if n == 0 {
		return "", 0, fmt.Errorf("cover response was empty")
	}
	if n > maxCoverBytes {
		return "", 0, fmt.Errorf("cover exceeds %s", humanize.Bytes(maxCoverBytes))
	}
	if err := os.Rename(tmpPath, filepath.Join(d.dir, name)); err != nil {
		return "", 0, fmt.Errorf("failed to save cover file: %w", err)
	}
	return name, n, nil
}

// coverExtension takes the extension from the URL, then the content type,
// defaulting to jpg.
func coverExtension(rawURL, contentType string) string {
	if m := coverExtPattern.FindStringSubmatch(rawURL); m != nil {
		return strings.ToLower(m[1])
	}
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return defaultCoverExt
	}
}

// file: internal/metadata/cover_test.go
// version: 2.1.0
// guid: 5fa1b8c9-d3e4-48f5-95a8-4ac57cde0b12

package metadata

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}

func TestCoverDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegMagic)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "public", "covers")
	d := NewCoverDownloader(dir, "/twc-vinyl-shelf/covers")

	rel, err := d.Download(context.Background(), srv.URL+"/art/cover.png", "queen-a-night-at-the-opera")
	require.NoError(t, err)
	assert.Equal(t, "/twc-vinyl-shelf/covers/queen-a-night-at-the-opera.png", rel, "extension comes from the URL")

	data, err := os.ReadFile(filepath.Join(dir, "queen-a-night-at-the-opera.png"))
	require.NoError(t, err)
	assert.Equal(t, jpegMagic, data)

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestCoverDownload_LogsThroughLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegMagic)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	d := NewCoverDownloader(t.TempDir(), "/covers/")
	d.SetLogger(logger.New(logger.InfoLevel, &buf).WithRun("01RUN"))
	_, err := d.Download(context.Background(), srv.URL+"/a.jpg", "first")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[INFO] saved cover first.jpg")
	assert.Contains(t, buf.String(), "[run: 01RUN]")

	buf.Reset()
	d.SetLogger(logger.New(logger.WarnLevel, &buf))
	_, err = d.Download(context.Background(), srv.URL+"/a.jpg", "second")
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "info lines respect the configured level")
}

func TestCoverDownload_UpgradesResolution(t *testing.T) {
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if strings.Contains(r.URL.Path, "3000x3000") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegMagic)
	}))
	defer srv.Close()

	d := NewCoverDownloader(t.TempDir(), "/covers/")
	rel, err := d.Download(context.Background(), srv.URL+"/image/100x100bb.jpg", "slug")
	require.NoError(t, err)
	assert.Equal(t, "/covers/slug.jpg", rel)
	assert.Equal(t, []string{"/image/3000x3000bb.jpg", "/image/600x600bb.jpg"}, requested)
}

func TestCoverCandidateURLs(t *testing.T) {
	d := NewCoverDownloader(t.TempDir(), "/covers/")
	assert.Equal(t, []string{
		"https://a/3000x3000bb.jpg",
		"https://a/600x600bb.jpg",
		"https://a/100x100bb.jpg",
	}, d.CandidateURLs("https://a/100x100bb.jpg"))
	assert.Equal(t, []string{"https://a/1280x1280.jpg"}, d.CandidateURLs("https://a/1280x1280.jpg"))
}

func TestCoverDownload_RejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewCoverDownloader(dir, "/covers/")
	_, err := d.Download(context.Background(), srv.URL+"/notimage", "slug")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArtworkFetchFailed))

	var afe *ArtworkFetchError
	require.True(t, errors.As(err, &afe))
	assert.Equal(t, "slug", afe.Slug)
	assert.Len(t, afe.Attempts, 1)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "no partial file is left behind")
}

func TestCoverDownload_AllAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewCoverDownloader(t.TempDir(), "/covers/")
	_, err := d.Download(context.Background(), srv.URL+"/100x100bb.jpg", "slug")
	var afe *ArtworkFetchError
	require.True(t, errors.As(err, &afe))
	assert.Len(t, afe.Attempts, 3)
}

func TestCoverDownload_NoURL(t *testing.T) {
	d := NewCoverDownloader(t.TempDir(), "/covers/")
	_, err := d.Download(context.Background(), "", "slug")
	assert.True(t, errors.Is(err, ErrNoArtwork))
}

func TestCoverExistingAndPlaceholder(t *testing.T) {
	dir := t.TempDir()
	d := NewCoverDownloader(dir, "/twc-vinyl-shelf/covers/")
	assert.Equal(t, "", d.Existing("abbey-road"))
	assert.Equal(t, "/twc-vinyl-shelf/covers/abbey-road.jpg", d.Placeholder("abbey-road"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "abbey-road.webp"), []byte("x"), 0o644))
	assert.Equal(t, "/twc-vinyl-shelf/covers/abbey-road.webp", d.Existing("abbey-road"))
}

func TestCoverExtension(t *testing.T) {
	tests := []struct {
		url, ct, want string
	}{
		{"https://a/b.PNG", "", "png"},
		{"https://a/b.jpeg?x=1", "", "jpeg"},
		{"https://a/b.webp", "image/jpeg", "webp"},
		{"https://a/b", "image/png", "png"},
		{"https://a/b", "image/webp", "webp"},
		{"https://a/b", "", "jpg"},
	}
	for _, tt := range tests {
		if got := coverExtension(tt.url, tt.ct); got != tt.want {
			t.Errorf("coverExtension(%q, %q) = %q, want %q", tt.url, tt.ct, got, tt.want)
		}
	}
}

// file: cmd/commands_test.go
// version: 2.0.0
// guid: 6f5b7d78-11d8-4c1a-a150-96d2c4a1a885

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/config"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/people"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/pipeline"
)

// fakeITunes serves canned search and lookup responses for Queen's
// "A Night at the Opera".
func fakeITunes(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		art := srv.URL + "/art/100x100bb.jpg"
		switch {
		case strings.HasPrefix(r.URL.Path, "/art/"):
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00})
		case r.URL.Path == "/search" && r.URL.Query().Get("entity") == "album":
			if !strings.Contains(r.URL.Query().Get("term"), "Opera") {
				fmt.Fprint(w, `{"resultCount":1,"results":[{"wrapperType":"collection","collectionId":9,"artistName":"Nobody","collectionName":"Something Else"}]}`)
				return
			}
			fmt.Fprintf(w, `{"resultCount":1,"results":[{"wrapperType":"collection","collectionId":102,
				"artistName":"Queen","collectionName":"A Night at the Opera","artworkUrl100":%q,
				"releaseDate":"1975-11-21T08:00:00Z","copyright":"(P) 1975 Queen Productions Ltd under exclusive license to EMI"}]}`, art)
		case r.URL.Path == "/search":
			fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
		case r.URL.Path == "/lookup":
			fmt.Fprint(w, `{"resultCount":3,"results":[
				{"wrapperType":"collection","collectionId":102,"collectionName":"A Night at the Opera"},
				{"wrapperType":"track","kind":"song","trackNumber":2,"trackName":"Lazing on a Sunday Afternoon","trackTimeMillis":67000,"artistName":"Queen"},
				{"wrapperType":"track","kind":"song","trackNumber":1,"trackName":"Death on Two Legs","trackTimeMillis":223000,"artistName":"Queen"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

type cliEnv struct {
	dir     string
	catalog string
	covers  string
}

// newCLIEnv writes a config file pointing every path into a temp dir.
func newCLIEnv(t *testing.T, extra map[string]string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:     dir,
		catalog: filepath.Join(dir, "catalog.json"),
		covers:  filepath.Join(dir, "covers"),
	}
	settings := map[string]string{
		"catalog_path":  env.catalog,
		"covers_dir":    env.covers,
		"provider":      config.ProviderITunes,
		"request_delay": "0s",
		"no_cache":      "true",
		"log_level":     "error",
		"backup_max":    "2",
	}
	for k, v := range extra {
		settings[k] = v
	}
	var b strings.Builder
	for k, v := range settings {
		fmt.Fprintf(&b, "%s: %q\n", k, v)
	}
	path := filepath.Join(dir, "vinyl-shelf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	orig := cfgFile
	origCfg := config.AppConfig
	t.Cleanup(func() {
		cfgFile = orig
		config.AppConfig = origCfg
	})
	cfgFile = path
	return env
}

// resetFlags puts every flag back to its default so runs do not leak.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	c.SilenceUsage = false
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := cfgFile
	resetFlags(rootCmd)
	cfgFile = cfg
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readCatalog(t *testing.T, path string) []models.AlbumEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []models.AlbumEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestParseCredits(t *testing.T) {
	got, err := parseCredits([]string{"Tyler Chase:Mixing engineer", " Alice : Producer "})
	require.NoError(t, err)
	assert.Equal(t, []models.CreditEntry{
		{Name: "Tyler Chase", Role: "Mixing engineer"},
		{Name: "Alice", Role: "Producer"},
	}, got)

	got, err = parseCredits(nil)
	require.NoError(t, err)
	assert.Nil(t, got, "no flags keeps stored credits")

	for _, bad := range []string{"Tyler Chase", ":Engineer", "Tyler:"} {
		_, err := parseCredits([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestAddAlbumRequiresTwoArgs(t *testing.T) {
	newCLIEnv(t, nil)
	out, err := runCLI(t, "add-album", "Queen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
	assert.Contains(t, out, "Usage:")
}

func TestAddAlbumMissingTidalCredentials(t *testing.T) {
	srv, hits := fakeITunes(t)
	newCLIEnv(t, map[string]string{
		"provider":       config.ProviderTidal,
		"tidal_api_url":  srv.URL,
		"tidal_auth_url": srv.URL + "/token",
	})
	t.Setenv("TIDAL_CLIENT_ID", "")
	t.Setenv("TIDAL_CLIENT_SECRET", "")

	_, err := runCLI(t, "add-album", "Queen", "A Night at the Opera")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingCredentials))
	assert.Contains(t, err.Error(), "TIDAL_CLIENT_ID")
	assert.Equal(t, int32(0), hits.Load(), "no request before credentials are checked")
}

func TestAddAlbumITunes(t *testing.T) {
	srv, _ := fakeITunes(t)
	env := newCLIEnv(t, map[string]string{"itunes_base_url": srv.URL})

	out, err := runCLI(t, "add-album", "Queen", "A Night at the Opera", "--credit", "Tyler Chase:Engineer")
	require.NoError(t, err)
	assert.Contains(t, out, "score 180")
	assert.Contains(t, out, "Added queen-a-night-at-the-opera at position 1")

	entries := readCatalog(t, env.catalog)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "queen-a-night-at-the-opera", e.ID)
	assert.Equal(t, "102", e.ExternalID)
	assert.Equal(t, "EMI", e.Label)
	assert.Equal(t, "1975-11-21", e.ReleaseDateString())
	require.Len(t, e.Tracks, 2)
	assert.Equal(t, "Death on Two Legs", e.Tracks[0].Name)
	assert.Equal(t, 223000, e.Tracks[0].DurationMs)
	assert.Equal(t, "/twc-vinyl-shelf/covers/queen-a-night-at-the-opera.jpg", e.CoverURL())
	assert.Equal(t, []models.CreditEntry{{Name: "Tyler Chase", Role: "Engineer"}}, e.Credits)

	_, err = os.Stat(filepath.Join(env.covers, "queen-a-night-at-the-opera.jpg"))
	assert.NoError(t, err)

	// Running again without --credit keeps the stored credits and changes nothing.
	out, err = runCLI(t, "add-album", "Queen", "A Night at the Opera")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog already up to date")
	assert.Equal(t, e.Credits, readCatalog(t, env.catalog)[0].Credits)
}

func TestAddAlbumDryRun(t *testing.T) {
	srv, _ := fakeITunes(t)
	env := newCLIEnv(t, map[string]string{"itunes_base_url": srv.URL})

	out, err := runCLI(t, "add-album", "Queen", "A Night at the Opera", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: catalog not written")
	assert.Contains(t, out, "(placeholder)")

	_, err = os.Stat(env.catalog)
	assert.True(t, os.IsNotExist(err))
	covers, _ := os.ReadDir(env.covers)
	assert.Empty(t, covers, "dry run downloads no cover art")
}

func TestAddAlbumNoConfidentMatch(t *testing.T) {
	srv, _ := fakeITunes(t)
	env := newCLIEnv(t, map[string]string{"itunes_base_url": srv.URL})
	require.NoError(t, os.WriteFile(env.catalog, []byte("[]\n"), 0644))

	_, err := runCLI(t, "add-album", "The Beatles", "Abbey Road")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrNoConfidentMatch))

	data, err := os.ReadFile(env.catalog)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data), "catalog untouched")
}

const curatedCatalog = `[
  {
    "id": "ebk-jaaybo-boogieman",
    "name": "Boogieman",
    "artist": "EBK JaayBo",
    "release_date": "2024-08-22",
    "label": "EBK Records",
    "images": [{"url": "/twc-vinyl-shelf/covers/ebk-jaaybo-boogieman.jpg"}],
    "tracks": [{"id": "t-1", "track_number": 1, "name": "Boogieman", "duration_ms": 187000}],
    "credits": [{"name": "Tyler Chase", "role": "Mixing engineer"}]
  },
  {
    "id": "queen-a-night-at-the-opera",
    "name": "A Night at the Opera",
    "artist": "Queen",
    "release_date": "1975-11-21",
    "label": "EMI",
    "images": [{"url": "/twc-vinyl-shelf/covers/queen-a-night-at-the-opera.jpg"}],
    "tracks": [{"id": "t-1", "track_number": 1, "name": "Death on Two Legs", "duration_ms": 223000}],
    "credits": [{"name": "Tyler Chase", "role": "Engineer"}, {"name": "Roy Thomas Baker", "role": "Producer"}]
  }
]
`

func TestPeopleJSON(t *testing.T) {
	env := newCLIEnv(t, nil)
	require.NoError(t, os.WriteFile(env.catalog, []byte(curatedCatalog), 0644))

	out, err := runCLI(t, "people", "--json")
	require.NoError(t, err)

	var list []people.Person
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Roy Thomas Baker", list[0].Name)
	assert.Equal(t, "tyler-chase", list[1].Slug)
	require.Len(t, list[1].Appearances, 2)
	assert.Equal(t, "ebk-jaaybo-boogieman", list[1].Appearances[0].AlbumID, "newest first")
}

func TestPeopleUnknownSlug(t *testing.T) {
	env := newCLIEnv(t, nil)
	require.NoError(t, os.WriteFile(env.catalog, []byte(curatedCatalog), 0644))

	_, err := runCLI(t, "people", "nobody")
	assert.ErrorContains(t, err, `no person with slug "nobody"`)
}

func TestSearchCommand(t *testing.T) {
	env := newCLIEnv(t, nil)
	require.NoError(t, os.WriteFile(env.catalog, []byte(curatedCatalog), 0644))

	out, err := runCLI(t, "search", "death", "legs")
	require.NoError(t, err)
	assert.Contains(t, out, "queen-a-night-at-the-opera")
	assert.NotContains(t, out, "ebk-jaaybo-boogieman")

	out, err = runCLI(t, "search", "nothing-here")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries match")
}

func TestValidate(t *testing.T) {
	env := newCLIEnv(t, nil)
	require.NoError(t, os.WriteFile(env.catalog, []byte(curatedCatalog), 0644))

	out, err := runCLI(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries OK")

	broken := `[{"id":"x","name":"X","artist":"Y","images":[],"tracks":[]}]`
	require.NoError(t, os.WriteFile(env.catalog, []byte(broken), 0644))
	out, err = runCLI(t, "validate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalidCatalog))
	assert.Contains(t, out, "images[0].url")
}

func TestValidateUnparseableCatalog(t *testing.T) {
	env := newCLIEnv(t, nil)
	require.NoError(t, os.WriteFile(env.catalog, []byte("const CATALOG = [{ id: 'x' }]"), 0644))

	_, err := runCLI(t, "validate")
	assert.Error(t, err)
}

func TestAddSinglesCommand(t *testing.T) {
	srv, _ := fakeITunes(t)
	env := newCLIEnv(t, map[string]string{"itunes_base_url": srv.URL})
	manifest := filepath.Join(env.dir, "singles.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`credit_name: Tyler Chase
singles:
  - title: Deep
    artist: Girlfriend
    credit: Engineer
    release_date: "2025-01-10"
`), 0644))

	out, err := runCLI(t, "add-singles", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Deep by Girlfriend: not found, using manifest data")
	assert.Contains(t, out, "Updated catalog with 1 singles (0 matched)")

	entries := readCatalog(t, env.catalog)
	require.Len(t, entries, 1)
	assert.Equal(t, "girlfriend-deep", entries[0].ID)
	assert.Equal(t, "/twc-vinyl-shelf/covers/girlfriend-deep.jpg", entries[0].CoverURL())
}

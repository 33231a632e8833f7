// file: cmd/app.go
// version: 1.1.0
// guid: 2e9b4c71-6a3d-4f58-8d1e-5b7c0a9f3e26

package cmd

import (
	"io"
	"net/http"
	"os"

	"golang.org/x/time/rate"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/cache"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/catalog"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/config"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metadata"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/models"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/pipeline"
)

// app holds what a command run needs, built from config.AppConfig.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	store   *catalog.Store
	closers []func() error
}

// newApp validates the configuration and opens the catalog store. Callers
// must defer close.
func newApp(stderr io.Writer) (*app, error) {
	cfg := config.AppConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	log := logger.New(logger.ParseLevel(cfg.LogLevel), stderr).WithRun(logger.NewRunID())
	metrics.Register()

	store := catalog.NewStore(cfg.CatalogPath, cfg.CatalogFormat)
	store.Backups.MaxBackups = cfg.BackupMax
	store.Log = log

	return &app{cfg: cfg, log: log, store: store}, nil
}

// close releases resources and writes the metrics textfile when configured.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warnf("close: %v", err)
		}
	}
	a.closers = nil
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warnf("%v", err)
		} else {
			a.log.Debugf("metrics written to %s", a.cfg.MetricsFile)
		}
	}
}

// lookupCache layers an in-memory cache over the on-disk one. A disk cache
// that cannot be opened is logged and skipped.
func (a *app) lookupCache() cache.Store {
	if a.cfg.NoCache {
		return nil
	}
	mem := cache.NewMemory(a.cfg.CacheTTL)
	disk, err := cache.OpenDisk(a.cfg.CacheDir, a.cfg.CacheTTL)
	if err != nil {
		a.log.Warnf("lookup cache disabled on disk: %v", err)
		return cache.NewTiered(mem, nil)
	}
	disk.SetLogger(a.log)
	a.log.Debugf("lookup cache opened at %s", a.cfg.CacheDir)
	a.closers = append(a.closers, disk.Close)
	return cache.NewTiered(mem, disk)
}

// source builds the configured provider client. Missing TIDAL credentials
// fail here, before any network call.
func (a *app) source() (metadata.Source, error) {
	hc := &http.Client{Timeout: a.cfg.HTTPTimeout}

	switch a.cfg.Provider {
	case config.ProviderITunes:
		c := metadata.NewITunesClientWithBaseURL(a.cfg.ITunesBaseURL)
		c.SetHTTPClient(hc)
		c.SetCountry(a.cfg.Country)
		c.SetLogger(a.log)
		if store := a.lookupCache(); store != nil {
			c.SetCache(store)
		}
		return c, nil
	default:
		id, secret, err := a.cfg.TidalCredentials()
		if err != nil {
			return nil, err
		}
		c := metadata.NewTidalClientWithURLs(a.cfg.TidalAPIURL, a.cfg.TidalAuthURL, id, secret)
		c.SetHTTPClient(hc)
		c.SetCountry(a.cfg.Country)
		c.SetLogger(a.log)
		if store := a.lookupCache(); store != nil {
			c.SetCache(store)
		}
		return c, nil
	}
}

// covers returns the cover downloader for the configured directory.
func (a *app) covers() *metadata.CoverDownloader {
	d := metadata.NewCoverDownloader(a.cfg.CoversDir, a.cfg.CoverURLPrefix)
	d.SetHTTPClient(&http.Client{Timeout: a.cfg.HTTPTimeout})
	d.SetLogger(a.log)
	return d
}

// ingester wires the pipeline with the provider, covers, store, placement
// and request pacing.
func (a *app) ingester(progress io.Writer) (*pipeline.Ingester, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	in := pipeline.NewIngester(src, a.covers(), a.store)
	in.Placement = catalog.ParsePlacement(a.cfg.NewEntryPlacement)
	in.Log = a.log
	in.Progress = progress
	if a.cfg.RequestDelay > 0 {
		in.Limiter = rate.NewLimiter(rate.Every(a.cfg.RequestDelay), 1)
	}
	return in, nil
}

// entries loads every catalog entry.
func (a *app) entries() ([]models.AlbumEntry, error) {
	doc, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	return doc.Entries()
}

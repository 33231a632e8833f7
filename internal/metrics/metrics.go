// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vinyl_shelf"

var (
	registerOnce sync.Once

	// Registry holds the pipeline metrics. It is separate from the default
	// registry so textfile output only carries these series.
	Registry = prometheus.NewRegistry()

	searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Metadata searches by source, entity kind and outcome",
	}, []string{"source", "kind", "outcome"})
	searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Histogram of metadata request durations in seconds by source",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	}, []string{"source"})
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookup_cache_total",
		Help:      "Lookup cache hits and misses by source",
	}, []string{"source", "result"})
	matches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_total",
		Help:      "Fuzzy match decisions by mode and outcome",
	}, []string{"mode", "outcome"})
	covers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "covers_total",
		Help:      "Cover art downloads by outcome",
	}, []string{"outcome"})
	catalogWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_writes_total",
		Help:      "Catalog saves by result (written, unchanged, dry_run, failed)",
	}, []string{"result"})
	entriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_entries",
		Help:      "Number of entries in the catalog after the last write",
	})
)

// Register adds the metrics to Registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(searches, searchDuration, cacheLookups, matches, covers, catalogWrites, entriesGauge)
	})
}

// Search helpers
func IncSearch(source, kind, outcome string) { searches.WithLabelValues(source, kind, outcome).Inc() }
func ObserveRequest(source string, d time.Duration) {
	searchDuration.WithLabelValues(source).Observe(d.Seconds())
}
func IncCacheHit(source string)  { cacheLookups.WithLabelValues(source, "hit").Inc() }
func IncCacheMiss(source string) { cacheLookups.WithLabelValues(source, "miss").Inc() }

// Pipeline helpers
func IncMatch(mode string, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	matches.WithLabelValues(mode, outcome).Inc()
}
func IncCover(outcome string)       { covers.WithLabelValues(outcome).Inc() }
func IncCatalogWrite(result string) { catalogWrites.WithLabelValues(result).Inc() }
func SetEntries(n int)              { entriesGauge.Set(float64(n)) }

// WriteTextfile writes the registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	Register()
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// file: internal/watcher/watcher_test.go
// version: 2.1.0
// guid: a1b2c3d4-e5f6-7890-abcd-ef1234567890

package watcher

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

func TestDebounceSingleEvent(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.json")

	var calls atomic.Int32
	w := New(func([]string) {
		calls.Add(1)
	}, 100*time.Millisecond)

	if err := w.Start(catalog); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(catalog, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	// Wait for debounce + buffer.
	time.Sleep(300 * time.Millisecond)

	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 callback, got %d", c)
	}
}

func TestDebounceMultipleEvents(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.json")
	manifest := filepath.Join(dir, "singles.yaml")

	var (
		mu      sync.Mutex
		batches [][]string
	)
	w := New(func(changed []string) {
		mu.Lock()
		batches = append(batches, changed)
		mu.Unlock()
	}, 200*time.Millisecond)

	if err := w.Start(catalog, manifest); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Rapid-fire writes within the debounce window.
	for i := 0; i < 5; i++ {
		target := catalog
		if i%2 == 1 {
			target = manifest
		}
		_ = os.WriteFile(target, []byte("data"), 0644)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected exactly 1 debounced callback, got %d", len(batches))
	}
	got := batches[0]
	if len(got) != 2 || filepath.Base(got[0]) != "catalog.json" || filepath.Base(got[1]) != "singles.yaml" {
		t.Errorf("unexpected changed files: %v", got)
	}
}

func TestOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	w := New(func([]string) {
		calls.Add(1)
	}, 100*time.Millisecond)

	if err := w.Start(filepath.Join(dir, "catalog.json")); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	_ = os.WriteFile(filepath.Join(dir, "catalog.json.lock"), nil, 0644)
	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644)

	time.Sleep(300 * time.Millisecond)

	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 callbacks for unrelated files, got %d", c)
	}
}

func TestAtomicReplaceTriggers(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(catalog, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := New(func([]string) {
		calls.Add(1)
	}, 100*time.Millisecond)
	if err := w.Start(catalog); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, ".catalog.json.123.tmp")
	_ = os.WriteFile(tmp, []byte("[{}]"), 0644)
	if err := os.Rename(tmp, catalog); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)

	if c := calls.Load(); c != 1 {
		t.Errorf("expected 1 callback after rename, got %d", c)
	}
}

func TestStartRequiresFiles(t *testing.T) {
	w := New(nil, 0)
	if err := w.Start(); err == nil {
		t.Error("expected error when no files are given")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(func([]string) {}, 100*time.Millisecond)
	if err := w.Start(filepath.Join(dir, "catalog.json")); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop() // should not panic
}

func TestStartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := New(func([]string) {}, 100*time.Millisecond)
	if err := w.Start(filepath.Join(dir, "catalog.json")); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	// Second start should be a no-op.
	if err := w.Start(filepath.Join(dir, "catalog.json")); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteTriggers(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "catalog.json")
	_ = os.WriteFile(f, []byte("[]"), 0644)

	var mu sync.Mutex
	var called bool
	w := New(func([]string) {
		mu.Lock()
		called = true
		mu.Unlock()
	}, 100*time.Millisecond)

	if err := w.Start(f); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Give watcher time to register.
	time.Sleep(50 * time.Millisecond)

	_ = os.Remove(f)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Error("expected callback on file deletion")
	}
}

// syncBuffer is a bytes.Buffer safe to read while the debounce timer writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogsThroughLogger(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.json")

	var debugOut, infoOut syncBuffer
	debugW := New(nil, 50*time.Millisecond)
	debugW.SetLogger(logger.New(logger.DebugLevel, &debugOut))
	infoW := New(nil, 50*time.Millisecond)
	infoW.SetLogger(logger.New(logger.InfoLevel, &infoOut))

	for _, w := range []*Watcher{debugW, infoW} {
		if err := w.Start(catalog); err != nil {
			t.Fatal(err)
		}
		defer w.Stop()
	}

	if err := os.WriteFile(catalog, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	if got := debugOut.String(); !strings.Contains(got, "[DEBUG] watcher: 1 file(s) changed") {
		t.Errorf("expected debug line, got %q", got)
	}
	if got := infoOut.String(); got != "" {
		t.Errorf("expected nothing below info, got %q", got)
	}
}

// file: internal/cache/cache_test.go
// version: 2.1.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	v, ok := c.Get("k")
	if !ok || v != "v" {
		t.Fatalf("expected v, got %q ok=%v", v, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New[int](time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", 42)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Invalidate("a")
	_, ok := c.Get("a")
	if ok {
		t.Fatal("expected a to be invalidated")
	}
	v, ok := c.Get("b")
	if !ok || v != "2" {
		t.Fatal("expected b to remain")
	}
}

func TestDiskRoundTripAndExpiry(t *testing.T) {
	d, err := OpenDisk(filepath.Join(t.TempDir(), "lookup"), time.Hour)
	require.NoError(t, err)
	defer d.Close()

	d.Set("itunes:search?term=queen", []byte(`{"resultCount":0}`))
	v, ok := d.Get("itunes:search?term=queen")
	require.True(t, ok)
	assert.Equal(t, `{"resultCount":0}`, string(v))

	_, ok = d.Get("missing")
	assert.False(t, ok)

	now := time.Now()
	d.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, ok = d.Get("itunes:search?term=queen")
	assert.False(t, ok, "entry past its TTL should miss")
}

func TestTieredFillsMemoryFromDisk(t *testing.T) {
	disk := NewMemory(time.Hour)
	disk.Set("k", []byte("from-disk"))
	mem := NewMemory(time.Hour)

	tc := NewTiered(mem, disk)
	v, ok := tc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(v))

	v, ok = mem.Get("k")
	require.True(t, ok, "memory tier should be filled on a disk hit")
	assert.Equal(t, "from-disk", string(v))

	tc.Set("n", []byte("new"))
	_, ok = disk.Get("n")
	assert.True(t, ok)
}

func TestTieredNilTiers(t *testing.T) {
	tc := NewTiered(nil, nil)
	tc.Set("k", []byte("v"))
	_, ok := tc.Get("k")
	assert.False(t, ok)
}

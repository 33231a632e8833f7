// file: internal/cache/disk.go
// version: 1.1.0
// guid: 803093e4-0380-4c86-ab64-0864e44840c4

package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/pebble/v2"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
)

const prefixLookup = "lookup:"

// Disk persists lookup responses in PebbleDB so repeated runs skip the network.
// Each value is prefixed with its expiry as unix nanoseconds.
type Disk struct {
	db  *pebble.DB
	ttl time.Duration
	now func() time.Time
	log *logger.Logger
}

// OpenDisk opens or creates the cache database at path.
func OpenDisk(path string, ttl time.Duration) (*Disk, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open lookup cache: %w", err)
	}
	return &Disk{db: db, ttl: ttl, now: time.Now}, nil
}

// SetLogger routes cache read and write failures to l.
func (d *Disk) SetLogger(l *logger.Logger) { d.log = l }

// Close closes the underlying PebbleDB.
func (d *Disk) Close() error {
	return d.db.Close()
}

// Get returns a cached value that has not expired.
func (d *Disk) Get(key string) ([]byte, bool) {
	val, closer, err := d.db.Get([]byte(prefixLookup + key))
	if err != nil {
		if !errors.Is(err, pebble.ErrNotFound) {
			d.log.Warnf("lookup cache read failed: %v", err)
		}
		return nil, false
	}
	defer closer.Close()

	if len(val) < 8 {
		return nil, false
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(val[:8])))
	if d.now().After(expires) {
		_ = d.db.Delete([]byte(prefixLookup+key), pebble.NoSync)
		return nil, false
	}
	out := make([]byte, len(val)-8)
	copy(out, val[8:])
	return out, true
}

// Set stores value with the configured TTL. Write failures are logged and
// otherwise ignored; the cache is an optimization.
func (d *Disk) Set(key string, value []byte) {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(d.now().Add(d.ttl).UnixNano()))
	copy(buf[8:], value)
	if err := d.db.Set([]byte(prefixLookup+key), buf, pebble.NoSync); err != nil {
		d.log.Warnf("lookup cache write failed: %v", err)
	}
}

// file: internal/cache/tiered.go
// version: 1.0.0
// guid: b205cbb5-02af-4fb2-9a6d-8b9854d1a7db

package cache

// Tiered checks a fast in-memory cache before a persistent one and fills the
// memory tier on persistent hits.
type Tiered struct {
	mem  *Memory
	disk Store
}

// NewTiered layers mem over disk. Either may be nil.
func NewTiered(mem *Memory, disk Store) *Tiered {
	return &Tiered{mem: mem, disk: disk}
}

// Get returns the value from the first tier that has it.
func (t *Tiered) Get(key string) ([]byte, bool) {
	if t.mem != nil {
		if v, ok := t.mem.Get(key); ok {
			return v, true
		}
	}
	if t.disk != nil {
		if v, ok := t.disk.Get(key); ok {
			if t.mem != nil {
				t.mem.Set(key, v)
			}
			return v, true
		}
	}
	return nil, false
}

// Set writes value to every tier.
func (t *Tiered) Set(key string, value []byte) {
	if t.mem != nil {
		t.mem.Set(key, value)
	}
	if t.disk != nil {
		t.disk.Set(key, value)
	}
}

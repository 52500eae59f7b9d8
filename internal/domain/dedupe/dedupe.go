// Package dedupe tracks identifiers already seen during one acquisition run.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen ids so each is admitted at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper never evicts: an evicted id could be admitted twice.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	size atomic.Int64
}

// NewInMemoryDeduper creates an empty deduper. sizeHint preallocates room
// for the expected number of ids; non-positive means no hint.
func NewInMemoryDeduper(sizeHint int) Deduper {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &inMemoryDeduper{seen: make(map[string]struct{}, sizeHint)}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the number of distinct ids recorded.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/meeple/internal/domain/model"
)

// MemoryStore keeps the snapshot in process memory. It does not survive a
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	snap    model.Snapshot
	present bool
	opts    options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{opts: newOptions("memory-store", opts)}
}

func (s *MemoryStore) LastWrite(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.WrittenAt, s.present, nil
}

func (s *MemoryStore) ReadIfFresh(_ context.Context, ttl time.Duration) (model.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present || !isFresh(s.opts.clock(), s.snap.WrittenAt, ttl) {
		return model.Snapshot{}, false, nil
	}
	return model.Snapshot{Candidates: copyCandidates(s.snap.Candidates), WrittenAt: s.snap.WrittenAt}, true, nil
}

func (s *MemoryStore) Write(_ context.Context, snap model.Snapshot) error {
	at := snap.WrittenAt
	if at.IsZero() {
		at = s.opts.clock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = model.Snapshot{Candidates: copyCandidates(snap.Candidates), WrittenAt: at}
	s.present = true
	return nil
}

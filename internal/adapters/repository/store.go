// Package repository persists the candidate snapshot and answers freshness
// queries against it.
//
// A snapshot is fresh iff now - lastWrite < ttl. At or past the ttl it is
// reported absent without its payload being read. Snapshots that exist but
// cannot be decoded are reported absent too, so the next rebuild replaces
// them.
package repository

import (
	"context"
	"time"

	"github.com/okian/meeple/internal/domain/model"
)

// Store provides read/write access to the persisted snapshot.
type Store interface {
	// ReadIfFresh returns the stored snapshot when one exists and is younger
	// than ttl. The bool is false when the snapshot is absent or stale.
	ReadIfFresh(ctx context.Context, ttl time.Duration) (model.Snapshot, bool, error)

	// Write replaces the stored snapshot. A zero WrittenAt is stamped with
	// the store's clock.
	Write(ctx context.Context, snap model.Snapshot) error

	// LastWrite reports when the snapshot was last written, if ever.
	LastWrite(ctx context.Context) (time.Time, bool, error)
}

func isFresh(now, written time.Time, ttl time.Duration) bool {
	return now.Sub(written) < ttl
}

// copyCandidates never returns nil so an empty snapshot encodes as [].
func copyCandidates(in []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(in))
	copy(out, in)
	return out
}

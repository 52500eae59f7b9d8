package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

// Badger keys. Both are written in one transaction.
const (
	keyCandidates = "snapshot:candidates"
	keyWrittenAt  = "snapshot:written_at"
)

// BadgerStore keeps the snapshot in a BadgerDB.
type BadgerStore struct {
	db   *badger.DB
	own  bool
	opts options
}

// OpenBadgerStore opens (or creates) a database in dir. Close releases it.
func OpenBadgerStore(dir string, opts ...Option) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, model.WrapKind("repository.badger.open", model.ErrCacheIO, err)
	}
	s, err := NewBadgerStore(db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.own = true
	return s, nil
}

// NewBadgerStore wraps an already open database. The caller keeps ownership.
func NewBadgerStore(db *badger.DB, opts ...Option) (*BadgerStore, error) {
	if db == nil {
		return nil, model.WrapKind("repository.badger.new", model.ErrCacheIO, ErrNilDB)
	}
	return &BadgerStore{db: db, opts: newOptions("badger-store", opts)}, nil
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) LastWrite(ctx context.Context) (time.Time, bool, error) {
	var (
		at time.Time
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		at, ok, err = s.writtenAt(ctx, txn)
		return err
	})
	if err != nil {
		return time.Time{}, false, model.WrapKind("repository.badger.last_write", model.ErrCacheIO, err)
	}
	return at, ok, nil
}

// writtenAt reads the timestamp key. An undecodable timestamp counts as absent.
func (s *BadgerStore) writtenAt(ctx context.Context, txn *badger.Txn) (time.Time, bool, error) {
	item, err := txn.Get([]byte(keyWrittenAt))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var at time.Time
	err = item.Value(func(val []byte) error {
		return at.UnmarshalBinary(val)
	})
	if err != nil {
		metrics.RecordCacheCorrupt()
		s.opts.logger.Warn(ctx, "snapshot timestamp undecodable, treating as absent", logger.Error(err))
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (s *BadgerStore) ReadIfFresh(ctx context.Context, ttl time.Duration) (model.Snapshot, bool, error) {
	var (
		snap  model.Snapshot
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		at, ok, err := s.writtenAt(ctx, txn)
		if err != nil || !ok || !isFresh(s.opts.clock(), at, ttl) {
			return err
		}

		item, err := txn.Get([]byte(keyCandidates))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var candidates []model.Candidate
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &candidates)
		}); err != nil {
			metrics.RecordCacheCorrupt()
			s.opts.logger.Warn(ctx, "snapshot payload undecodable, treating as absent", logger.Error(err))
			return nil
		}
		snap = model.Snapshot{Candidates: copyCandidates(candidates), WrittenAt: at}
		found = true
		return nil
	})
	if err != nil {
		return model.Snapshot{}, false, model.WrapKind("repository.badger.read", model.ErrCacheIO, err)
	}
	return snap, found, nil
}

func (s *BadgerStore) Write(ctx context.Context, snap model.Snapshot) error {
	const op = "repository.badger.write"
	data, err := json.Marshal(copyCandidates(snap.Candidates))
	if err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	at := snap.WrittenAt
	if at.IsZero() {
		at = s.opts.clock()
	}
	stamp, err := at.MarshalBinary()
	if err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyCandidates), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyWrittenAt), stamp)
	})
	if err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	s.opts.logger.Info(ctx, "snapshot written", logger.Int("candidates", len(snap.Candidates)))
	return nil
}

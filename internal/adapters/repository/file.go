package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/meeple/internal/domain/model"
	"github.com/okian/meeple/pkg/logger"
	"github.com/okian/meeple/pkg/metrics"
)

// FileStore keeps the snapshot as a JSON array of candidates in one file.
// The file's modification time is the write timestamp.
type FileStore struct {
	path string
	opts options
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, model.WrapKind("repository.file.new", model.ErrCacheIO, ErrEmptyPath)
	}
	return &FileStore{path: path, opts: newOptions("file-store", opts)}, nil
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

// LastWrite returns the file's modification time.
func (s *FileStore) LastWrite(_ context.Context) (time.Time, bool, error) {
	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, model.WrapKind("repository.file.stat", model.ErrCacheIO, err)
	}
	return fi.ModTime(), true, nil
}

// ReadIfFresh implements Store.
func (s *FileStore) ReadIfFresh(ctx context.Context, ttl time.Duration) (model.Snapshot, bool, error) {
	const op = "repository.file.read"
	written, ok, err := s.LastWrite(ctx)
	if err != nil || !ok {
		return model.Snapshot{}, false, err
	}
	if !isFresh(s.opts.clock(), written, ttl) {
		return model.Snapshot{}, false, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, model.WrapKind(op, model.ErrCacheIO, err)
	}

	var candidates []model.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		metrics.RecordCacheCorrupt()
		s.opts.logger.Warn(ctx, "snapshot file undecodable, treating as absent",
			logger.String("path", s.path), logger.Error(err))
		return model.Snapshot{}, false, nil
	}
	return model.Snapshot{Candidates: copyCandidates(candidates), WrittenAt: written}, true, nil
}

// Write replaces the file atomically: the payload goes to a temporary file in
// the same directory which is then renamed over the target.
func (s *FileStore) Write(ctx context.Context, snap model.Snapshot) error {
	const op = "repository.file.write"
	data, err := json.MarshalIndent(copyCandidates(snap.Candidates), "", "  ")
	if err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	at := snap.WrittenAt
	if at.IsZero() {
		at = s.opts.clock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	if err := tmp.Close(); err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	if err := os.Chtimes(tmpName, at, at); err != nil {
		return model.WrapKind(op, model.ErrCacheIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return model.WrapKind(op, model.ErrCacheIO, fmt.Errorf("replace %s: %w", s.path, err))
	}
	committed = true

	s.opts.logger.Info(ctx, "snapshot written",
		logger.String("path", s.path), logger.Int("candidates", len(snap.Candidates)))
	return nil
}

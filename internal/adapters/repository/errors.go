package repository

import "errors"

// Sentinel causes for store errors. Store errors also carry model.ErrCacheIO.
var (
	ErrEmptyPath = errors.New("snapshot path is empty")
	ErrNilDB     = errors.New("badger db is nil")
)

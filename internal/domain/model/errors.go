package model

import (
	"errors"
	"fmt"
)

// Error kinds shared across layers. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrFetch      = errors.New("fetch failed")
	ErrParse      = errors.New("parse failed")
	ErrCacheIO    = errors.New("cache io failed")
)

// KindError tags an underlying error with an operation and a kind.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *KindError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind tags err with op and kind. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Op: op, Kind: kind, Err: err}
}

// Wrap prefixes err with op, preserving whatever kind it already carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Op: op, Err: err}
}

// KindOf reports the first known kind carried by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrFetch, ErrParse, ErrCacheIO} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

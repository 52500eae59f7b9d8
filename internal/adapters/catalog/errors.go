package catalog

import "errors"

// Causes carried alongside the model error kinds.
var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrNoItem           = errors.New("no item in response")
	ErrNoPrimaryName    = errors.New("no primary name")
)

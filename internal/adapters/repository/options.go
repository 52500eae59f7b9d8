package repository

import (
	"time"

	"github.com/okian/meeple/pkg/logger"
)

type options struct {
	clock  func() time.Time
	logger logger.Logger
}

func newOptions(name string, opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named(name)
	}
	return o
}

// Option applies a configuration option to a Store.
type Option func(*options)

// WithClock replaces the wall clock used for write stamps and freshness.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

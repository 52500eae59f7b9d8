// Package pacing spaces consecutive outbound requests of one kind.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next request of its kind may be sent.
type Pacer interface {
	Wait(ctx context.Context) error
}

type intervalPacer struct {
	limiter *rate.Limiter
}

// NewInterval returns a Pacer that admits one request per d. The first call
// returns immediately. A non-positive d never waits.
func NewInterval(d time.Duration) Pacer {
	if d <= 0 {
		return Noop()
	}
	return &intervalPacer{limiter: rate.NewLimiter(rate.Every(d), 1)}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type noopPacer struct{}

// Noop returns a Pacer that only reports context cancellation.
func Noop() Pacer { return noopPacer{} }

func (noopPacer) Wait(ctx context.Context) error { return ctx.Err() }

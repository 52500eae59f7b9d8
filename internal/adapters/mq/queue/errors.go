package queue

import "errors"

var (
	// ErrQueueFull is returned by producers that give up on a rejected job.
	ErrQueueFull = errors.New("queue full")

	// ErrQueueClosed is returned by producers whose queue was closed under them.
	ErrQueueClosed = errors.New("queue closed")
)

package queue

import "errors"

// Sentinel enqueue failures.
var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

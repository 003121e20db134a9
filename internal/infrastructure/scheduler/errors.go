package scheduler

import "errors"

var (
	// ErrWorkerPoolNotRunning is returned when enqueueing into a stopped pool
	ErrWorkerPoolNotRunning = errors.New("resolution worker pool is not running")

	// ErrJobQueueFull is returned when the resolution queue is full
	ErrJobQueueFull = errors.New("resolution job queue is full")
)

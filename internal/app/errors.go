package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrBackpressure     = errors.New("attempt queue is full")
	ErrUnknownStore     = errors.New("unknown store kind")
	ErrStoreUnavailable = errors.New("outcome store unavailable")
	ErrStopped          = errors.New("service stopped before the attempt was evaluated")
)

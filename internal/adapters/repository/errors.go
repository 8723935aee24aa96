package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("attempt not found")
	ErrInvalidLimit = errors.New("invalid outcome limit")
	ErrInvalidID    = errors.New("attempt id is empty")
)

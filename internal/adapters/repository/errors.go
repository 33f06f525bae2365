package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("subject not found")
	ErrUnknownBackend = errors.New("unknown event store")
)

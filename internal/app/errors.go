package service

import "errors"

// Sentinel errors returned by Service.
var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrBackpressure    = errors.New("ingestion queue is full")
	ErrUnavailable     = errors.New("service not running")
	ErrSubjectNotFound = errors.New("subject not found")
)

package learn

import "errors"

var (
	// ErrModelUnavailable means no usable model is loaded; callers fall back.
	ErrModelUnavailable = errors.New("model unavailable")
	ErrTooFewSamples    = errors.New("too few samples")
	ErrDimension        = errors.New("dimension mismatch")
	ErrCorruptModel     = errors.New("corrupt model")
)

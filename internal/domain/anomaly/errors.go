package anomaly

import "errors"

var (
	// ErrInsufficientSamples is returned by Train with fewer than MinSamples windows.
	ErrInsufficientSamples = errors.New("cannot train: too few samples")
	ErrIncompatibleModel   = errors.New("incompatible anomaly model")
)

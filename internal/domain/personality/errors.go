package personality

import "errors"

var (
	// ErrInsufficientPopulation is returned by Train below the minimum population.
	ErrInsufficientPopulation = errors.New("cannot train: population below minimum")
	ErrIncompatibleModel      = errors.New("incompatible personality model")
)

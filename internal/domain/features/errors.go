package features

import "errors"

var (
	ErrMissingKey = errors.New("feature key missing")
	ErrNonFinite  = errors.New("feature value not finite")
	ErrUnknownKey = errors.New("unknown feature name")
)
